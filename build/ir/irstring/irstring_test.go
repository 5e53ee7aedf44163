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

package irstring_test

import (
	"strings"
	"testing"

	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irhelper"
	"github.com/gx-org/tilegrad/build/ir/irstring"
)

func maxPool() ir.Expr {
	i, k := ir.NewIndex("i"), ir.NewIndex("k")
	x := irhelper.Param("X", 6)
	c := irhelper.Named("O", irhelper.Contraction(ir.AggMax, ir.ComboNone,
		ir.OutSpec(irhelper.Indices(i), ir.Ints(3)),
		ir.Spec(x, ir.AddPoly(ir.MulPoly(ir.Lit(2), i), k)),
	))
	c.Constraints = []*ir.Constraint{{Lhs: k, Rhs: &ir.DimInt{Value: 2}}}
	c.Default = irhelper.Param("D", 3)
	return c
}

func TestString(t *testing.T) {
	a := irhelper.Param("A", 2, 5)
	b := irhelper.Param("B", 5, 3)
	tests := []struct {
		expr ir.Expr
		want string
	}{
		{
			expr: irhelper.Sum(irhelper.Call("exp", irhelper.MatMul(a, b))),
			want: `
_X0[i, j : 2, 3] = +(A[i, k] * B[k, j])
_X1 = exp(_X0)
_X2[] = +(_X1[x0, x1])
`,
		},
		{
			expr: maxPool(),
			want: `
O[i : 3] = >(X[(2 * i) + k]), k < 2 default D
`,
		},
		{
			expr: irhelper.Call("add", irhelper.Param("x"), irhelper.Param("x")),
			want: `
_X0 = add(x, x1)
`,
		},
		{
			expr: irhelper.Call("add", irhelper.Call("exp", irhelper.Param("a")), irhelper.Param("_X0")),
			want: `
_X1 = exp(a)
_X2 = add(_X1, _X0)
`,
		},
		{
			expr: ir.NewFloat(1),
			want: `
1.0
`,
		},
	}
	for i, test := range tests {
		got := irstring.String(test.expr)
		want := strings.TrimSpace(test.want)
		if got != want {
			t.Errorf("test %d: incorrect string:\ngot:\n%s\nwant:\n%s", i, got, want)
		}
	}
}

func TestSharedExpression(t *testing.T) {
	x := irhelper.Param("x", 3)
	e := irhelper.Call("exp", x)
	y := irhelper.Call("mul", e, e)
	got := irstring.String(y)
	want := "_X0 = exp(x)\n_X1 = mul(_X0, _X0)"
	if got != want {
		t.Errorf("incorrect string:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
