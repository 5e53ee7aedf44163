// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package interp_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irhelper"
	"github.com/gx-org/tilegrad/interp"
)

func tensor(t *testing.T, data []float64, dims ...int) *interp.Tensor {
	t.Helper()
	x, err := interp.NewTensor(data, dims...)
	if err != nil {
		t.Fatal(err)
	}
	return x
}

func TestEval(t *testing.T) {
	a, b := irhelper.Param("a", 2, 2), irhelper.Param("b", 2, 2)
	v, s := irhelper.Param("v", 3), irhelper.Param("s")
	m := irhelper.Param("m", 2, 3)
	i := ir.NewIndex("i")
	params := interp.Params{
		a: tensor(t, []float64{1, 2, 3, 4}, 2, 2),
		b: tensor(t, []float64{5, 6, 7, 8}, 2, 2),
		v: tensor(t, []float64{1, 5, 3}, 3),
		s: interp.Scalar(2),
		m: tensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3),
	}
	tests := []struct {
		name string
		expr ir.Expr
		want interp.Value
	}{
		{
			name: "matmul",
			expr: irhelper.MatMul(a, b),
			want: tensor(t, []float64{19, 22, 43, 50}, 2, 2),
		},
		{
			name: "transpose",
			expr: irhelper.Transpose(m),
			want: tensor(t, []float64{1, 4, 2, 5, 3, 6}, 3, 2),
		},
		{
			name: "sum",
			expr: irhelper.Sum(m),
			want: interp.Scalar(21),
		},
		{
			name: "max",
			expr: irhelper.Max(v),
			want: interp.Scalar(5),
		},
		{
			name: "elementwise",
			expr: irhelper.Elementwise(ir.ComboPlus, a, b),
			want: tensor(t, []float64{6, 8, 10, 12}, 2, 2),
		},
		{
			name: "broadcast",
			expr: irhelper.Call("mul", m, v),
			want: tensor(t, []float64{1, 10, 9, 4, 25, 18}, 2, 3),
		},
		{
			name: "scalar",
			expr: irhelper.Call("sub", v, s),
			want: tensor(t, []float64{-1, 3, 1}, 3),
		},
		{
			name: "compare",
			expr: irhelper.Call("cmp_gt", v, s),
			want: tensor(t, []float64{0, 1, 1}, 3),
		},
		{
			name: "unary",
			expr: irhelper.Call("neg", irhelper.Call("sqrt", irhelper.Call("mul", v, v))),
			want: tensor(t, []float64{-1, -5, -3}, 3),
		},
		{
			name: "reduce",
			expr: irhelper.Call(ir.FnSimpleReduce, m, v),
			want: tensor(t, []float64{5, 7, 9}, 3),
		},
		{
			name: "reduce to scalar",
			expr: irhelper.Call(ir.FnSimpleReduce, m, s),
			want: interp.Scalar(21),
		},
		{
			name: "reshape",
			expr: irhelper.Call(ir.FnReshape, m, ir.NewInt(3), ir.NewInt(2)),
			want: tensor(t, []float64{1, 2, 3, 4, 5, 6}, 3, 2),
		},
		{
			name: "tuple",
			expr: irhelper.Call(ir.FnTuple, s, v),
			want: interp.Tuple{interp.Scalar(2), tensor(t, []float64{1, 5, 3}, 3)},
		},
		{
			name: "element",
			expr: irhelper.Call(ir.FnElement, irhelper.Call(ir.FnTuple, s, v), ir.NewInt(1)),
			want: tensor(t, []float64{1, 5, 3}, 3),
		},
		{
			name: "tuple add",
			expr: irhelper.Call("add", irhelper.Call(ir.FnTuple, s, v), irhelper.Call(ir.FnTuple, s, v)),
			want: interp.Tuple{interp.Scalar(4), tensor(t, []float64{2, 10, 6}, 3)},
		},
		{
			name: "dimension",
			expr: ir.NewDim(&ir.DimRef{Ref: m, Axis: 1}),
			want: interp.Scalar(3),
		},
		{
			name: "default",
			expr: func() ir.Expr {
				c := irhelper.Contraction(ir.AggAssign, ir.ComboNone,
					ir.OutSpec(irhelper.Indices(i), ir.Ints(4)),
					ir.Spec(v, i),
				)
				c.Default = ir.NewFloat(7)
				return c
			}(),
			want: tensor(t, []float64{1, 5, 3, 7}, 4),
		},
		{
			name: "shift",
			expr: func() ir.Expr {
				j := ir.NewIndex("j")
				return irhelper.Contraction(ir.AggSum, ir.ComboNone,
					ir.OutSpec(irhelper.Indices(j), ir.Ints(3)),
					ir.Spec(v, ir.AddPoly(j, ir.Lit(1))),
				)
			}(),
			want: tensor(t, []float64{5, 3, 0}, 3),
		},
		{
			name: "mask",
			expr: func() ir.Expr {
				peak := irhelper.Max(v)
				idx := ir.NewIndex("x0")
				return irhelper.Contraction(ir.AggSum, ir.ComboCond,
					ir.OutSpec(irhelper.Indices(idx), ir.Ints(3)),
					ir.Spec(v, idx),
					ir.Spec(peak),
					ir.Spec(ir.NewFloat(2)),
				)
			}(),
			want: tensor(t, []float64{0, 2, 0}, 3),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := interp.Eval(test.expr, params)
			if err != nil {
				t.Fatalf("cannot evaluate %s: %+v", test.expr, err)
			}
			if diff := cmp.Diff(got, test.want, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("incorrect value: got %s but want %s\ndiff:\n%s", got, test.want, diff)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	x := irhelper.Param("x", 2)
	tests := []struct {
		name   string
		expr   ir.Expr
		params interp.Params
		want   error
	}{
		{
			name: "missing parameter",
			expr: irhelper.Call("exp", x),
			want: fmterr.ErrInvalidExpr,
		},
		{
			name:   "wrong dimensions",
			expr:   irhelper.Call("exp", x),
			params: interp.Params{x: interp.Scalar(1)},
			want:   fmterr.ErrInvalidExpr,
		},
		{
			name:   "unknown function",
			expr:   ir.NewCallShaped("softplus", x.Shape(), x),
			params: interp.Params{x: tensor(t, []float64{1, 2}, 2)},
			want:   fmterr.ErrNotImplemented,
		},
	}
	for _, test := range tests {
		_, err := interp.Eval(test.expr, test.params)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: incorrect error: got %v but want %v", test.name, err, test.want)
		}
	}
}

func TestEvalAllShares(t *testing.T) {
	x := irhelper.Param("x", 2)
	e := irhelper.Call("exp", x)
	vals, err := interp.EvalAll([]ir.Expr{e, irhelper.Call("add", e, e)}, interp.Params{
		x: tensor(t, []float64{0, 0}, 2),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []interp.Value{
		tensor(t, []float64{1, 1}, 2),
		tensor(t, []float64{2, 2}, 2),
	}
	if diff := cmp.Diff(vals, want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("incorrect values:\n%s", diff)
	}
}

func TestTensorString(t *testing.T) {
	got := tensor(t, []float64{1, 2.5}, 2).String()
	if want := "[2]float64{1, 2.5}"; got != want {
		t.Errorf("incorrect string: got %q but want %q", got, want)
	}
}
