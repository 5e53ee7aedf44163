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

package ir_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irhelper"
	"go.uber.org/multierr"
)

func TestCallShapes(t *testing.T) {
	x := irhelper.Param("x", 2, 3)
	y := irhelper.Param("y", 3)
	z := irhelper.Param("z", 2, 1)
	scalar := ir.NewFloat(2)
	tests := []struct {
		fn   string
		args []ir.Expr
		want *ir.Shape
	}{
		{
			fn:   "add",
			args: []ir.Expr{x, y},
			want: ir.Tensor(ir.Float32, 2, 3),
		},
		{
			fn:   "mul",
			args: []ir.Expr{z, y},
			want: ir.Tensor(ir.Float32, 2, 3),
		},
		{
			fn:   "sub",
			args: []ir.Expr{scalar, x},
			want: ir.Tensor(ir.Float32, 2, 3),
		},
		{
			fn:   "exp",
			args: []ir.Expr{y},
			want: ir.Tensor(ir.Float32, 3),
		},
		{
			fn:   "cmp_lt",
			args: []ir.Expr{x, y},
			want: ir.Tensor(ir.Bool, 2, 3),
		},
		{
			fn:   "simple_reduce",
			args: []ir.Expr{x, y},
			want: ir.Tensor(ir.Float32, 3),
		},
		{
			fn:   "reshape",
			args: []ir.Expr{x, ir.NewInt(3), ir.NewDim(&ir.DimRef{Ref: x, Axis: 0})},
			want: ir.Tensor(ir.Float32, 3, 2),
		},
		{
			fn:   "add",
			args: []ir.Expr{ir.NewInt(1), scalar},
			want: ir.Scalar(ir.Float32),
		},
	}
	for i, test := range tests {
		call, err := ir.NewCall(test.fn, test.args...)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if got := call.Shape(); got.String() != test.want.String() {
			t.Errorf("test %d: %s: got shape %s but want %s", i, call, got, test.want)
		}
	}
}

func TestTupleShapes(t *testing.T) {
	x := irhelper.Param("x", 2)
	y := irhelper.Param("y", 4, 4)
	tuple := irhelper.Call("tuple", x, y)
	if !tuple.Shape().IsTuple() || len(tuple.Shape().Tuple) != 2 {
		t.Fatalf("got shape %s but want a tuple of 2 elements", tuple.Shape())
	}
	el := irhelper.Call("element", tuple, ir.NewInt(1))
	if got, want := el.Shape(), ir.Tensor(ir.Float32, 4, 4); got.String() != want.String() {
		t.Errorf("got shape %s but want %s", got, want)
	}
	sum := irhelper.Call("add", tuple, tuple)
	if !sum.Shape().IsTuple() {
		t.Errorf("got shape %s but want a tuple", sum.Shape())
	}
}

func TestCallErrors(t *testing.T) {
	x := irhelper.Param("x", 2, 3)
	y := irhelper.Param("y", 4)
	tests := []struct {
		fn   string
		args []ir.Expr
	}{
		{fn: "add", args: []ir.Expr{x, y}},
		{fn: "add", args: []ir.Expr{x}},
		{fn: "unknown", args: []ir.Expr{x}},
		{fn: "reshape", args: []ir.Expr{x, ir.NewInt(5)}},
		{fn: "element", args: []ir.Expr{x, ir.NewInt(0)}},
		{fn: "add", args: []ir.Expr{x, nil}},
	}
	for i, test := range tests {
		_, err := ir.NewCall(test.fn, test.args...)
		if !errors.Is(err, fmterr.ErrInvalidExpr) {
			t.Errorf("test %d: got error %v but want an invalid expression error", i, err)
		}
	}
}

func TestContractionShape(t *testing.T) {
	a := irhelper.Param("A", 2, 5)
	b := ir.NewParam("B", ir.Tensor(ir.Float64, 5, 3).WithLayout("NHWC"))
	mm := irhelper.MatMul(a, b)
	if got, want := mm.Shape().AxisLengths, []int{2, 3}; !cmp.Equal(got, want) {
		t.Errorf("got axes %v but want %v", got, want)
	}
	if got := mm.Shape().DType; got != ir.Float64 {
		t.Errorf("got data type %s but want %s", got, ir.Float64)
	}
	if got := mm.Shape().Layout; got != "NHWC" {
		t.Errorf("got layout %q but want NHWC", got)
	}
	before := mm.Shape().String()
	if err := mm.ComputeShape("NHWC"); err != nil {
		t.Fatal(err)
	}
	if got := mm.Shape().String(); got != before || mm.Shape().Layout != "NHWC" {
		t.Errorf("ComputeShape is not idempotent: got %s but want %s", got, before)
	}
	eq := irhelper.Contraction(ir.AggSum, ir.ComboEq, ir.OutSpec(nil, nil),
		ir.Spec(a, ir.NewIndex("i"), ir.NewIndex("j")),
		ir.Spec(a, ir.NewIndex("i"), ir.NewIndex("j")))
	if got := eq.Shape().DType; got != ir.Bool {
		t.Errorf("got data type %s but want %s", got, ir.Bool)
	}
}

func TestContractionErrors(t *testing.T) {
	a := irhelper.Param("A", 2, 5)
	i := ir.NewIndex("i")
	tests := []*ir.ContractionExpr{
		{AggOp: ir.AggSum, Inputs: []*ir.TensorSpec{ir.Spec(a, i)}, Output: ir.OutSpec(nil, nil)},
		{AggOp: ir.AggSum, Inputs: []*ir.TensorSpec{ir.Spec(a, i, i)}},
		{AggOp: ir.AggSum, Output: ir.OutSpec(nil, nil)},
		{AggOp: ir.AggSum, Inputs: []*ir.TensorSpec{ir.Spec(a, i, i)}, Output: ir.OutSpec([]ir.PolyExpr{i}, nil)},
	}
	for ti, test := range tests {
		if err := test.ComputeShape(""); !errors.Is(err, fmterr.ErrInvalidExpr) {
			t.Errorf("test %d: got error %v but want an invalid expression error", ti, err)
		}
	}
}

func TestValidate(t *testing.T) {
	a := irhelper.Param("A", 2, 5)
	i, j := ir.NewIndex("i"), ir.NewIndex("j")
	good := irhelper.Sum(irhelper.Call("exp", a))
	if err := ir.Validate(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// Two problems: a COND contraction with two inputs and a call with a nil argument.
	bad := &ir.ContractionExpr{
		AggOp:   ir.AggSum,
		ComboOp: ir.ComboCond,
		Inputs: []*ir.TensorSpec{
			ir.Spec(a, i, j),
			ir.Spec(&ir.CallExpr{Fn: "exp", Args: []ir.Expr{nil}}),
		},
		Output: ir.OutSpec(nil, nil),
	}
	err := ir.Validate(bad)
	if !errors.Is(err, fmterr.ErrInvalidExpr) {
		t.Fatalf("got error %v but want an invalid expression error", err)
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Errorf("got %d errors but want 2: %v", got, err)
	}
}

func TestPolyEval(t *testing.T) {
	i, j := ir.NewIndex("i"), ir.NewIndex("j")
	env := map[*ir.PolyIndex]int{i: 7, j: -2}
	tests := []struct {
		p    ir.PolyExpr
		want int
		str  string
	}{
		{p: ir.AddPoly(i, j), want: 5, str: "i + j"},
		{p: ir.MulPoly(ir.Lit(2), ir.SubPoly(i, j)), want: 18, str: "2 * (i - j)"},
		{p: ir.DivPoly(i, ir.Lit(2)), want: 3, str: "i / 2"},
		{p: ir.DivPoly(ir.NegPoly(i), ir.Lit(2)), want: -4, str: "(-i) / 2"},
	}
	for ti, test := range tests {
		got, err := test.p.Eval(env)
		if err != nil {
			t.Errorf("test %d: %v", ti, err)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: %s evaluates to %d but want %d", ti, test.p, got, test.want)
		}
		if got := test.p.String(); got != test.str {
			t.Errorf("test %d: got string %q but want %q", ti, got, test.str)
		}
	}
	if _, err := ir.DivPoly(i, ir.Lit(0)).Eval(env); err == nil {
		t.Errorf("division by zero did not fail")
	}
	if _, err := ir.NewIndex("k").Eval(env); err == nil {
		t.Errorf("unbound index did not fail")
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		expr ir.Expr
		want string
	}{
		{expr: ir.NewFloat(1), want: "1.0"},
		{expr: ir.NewFloat(0.5), want: "0.5"},
		{expr: ir.NewInt(0), want: "0"},
		{expr: ir.NewDim(&ir.DimInt{Value: 4}), want: "4"},
	}
	for i, test := range tests {
		if got := test.expr.String(); got != test.want {
			t.Errorf("test %d: got %q but want %q", i, got, test.want)
		}
	}
}

func TestContractionString(t *testing.T) {
	a, b := irhelper.Param("A", 2, 5), irhelper.Param("B", 5, 3)
	tests := []struct {
		expr *ir.ContractionExpr
		want string
	}{
		{
			expr: irhelper.MatMul(a, b),
			want: fmt.Sprintf("contraction<[2][3]%s>(+*)", ir.Float32),
		},
		{
			expr: irhelper.Max(a),
			want: fmt.Sprintf("contraction<%s>(>)", ir.Float32),
		},
		{
			expr: irhelper.Named("O", irhelper.Sum(b)),
			want: "O",
		},
	}
	for i, test := range tests {
		if got := test.expr.String(); got != test.want {
			t.Errorf("test %d: got %q but want %q", i, got, test.want)
		}
	}
}
