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

package main

import (
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irhelper"
)

// example is a loss with the parameters to differentiate it with.
type example struct {
	loss   ir.Expr
	params []*ir.ParamExpr
}

var examples = map[string]func() example{
	"matmul": func() example {
		a, b := irhelper.Param("A", 2, 3), irhelper.Param("B", 3, 2)
		return example{
			loss:   irhelper.MatMul(a, b),
			params: []*ir.ParamExpr{a, b},
		}
	},
	"max": func() example {
		x := irhelper.Param("X", 4)
		return example{
			loss:   irhelper.Max(x),
			params: []*ir.ParamExpr{x},
		}
	},
	"maxpool": func() example {
		x := irhelper.Param("X", 6)
		i, j := ir.NewIndex("i"), ir.NewIndex("j")
		pool := irhelper.Named("pool", irhelper.Contraction(ir.AggMax, ir.ComboNone,
			ir.OutSpec(irhelper.Indices(i), ir.Ints(3)),
			ir.Spec(x, ir.AddPoly(ir.MulPoly(ir.Lit(2), i), j)),
		))
		pool.Constraints = []*ir.Constraint{{Lhs: j, Rhs: &ir.DimInt{Value: 2}}}
		return example{
			loss:   pool,
			params: []*ir.ParamExpr{x},
		}
	},
	"softsign": func() example {
		x, w := irhelper.Param("x", 3), irhelper.Param("w", 3)
		wx := irhelper.Call("mul", w, x)
		return example{
			loss:   irhelper.Call("tanh", irhelper.Call("add", wx, irhelper.Call("exp", wx))),
			params: []*ir.ParamExpr{x, w},
		}
	},
	"broadcast": func() example {
		m, b := irhelper.Param("M", 2, 3), irhelper.Param("b", 3)
		return example{
			loss:   irhelper.Call("sin", irhelper.Call("add", m, b)),
			params: []*ir.ParamExpr{m, b},
		}
	},
}
