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

// Package irhelper provides helper functions to build tile programs
// programmatically in tests and examples.
//
// Helpers panic if an expression cannot be built.
package irhelper

import (
	"fmt"

	"github.com/gx-org/tilegrad/build/ir"
)

// Param returns a float32 parameter.
func Param(name string, dims ...int) *ir.ParamExpr {
	return ir.NewParam(name, ir.Tensor(ir.Float32, dims...))
}

// Call returns a call. The shape of the call is inferred from its arguments.
func Call(fn string, args ...ir.Expr) *ir.CallExpr {
	call, err := ir.NewCall(fn, args...)
	if err != nil {
		panic(err)
	}
	return call
}

// Contraction returns a contraction.
func Contraction(agg ir.AggregationOp, combo ir.CombinationOp, out *ir.TensorSpec, inputs ...*ir.TensorSpec) *ir.ContractionExpr {
	c, err := ir.NewContraction(agg, combo, out, inputs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Named sets the name of a contraction and returns it.
func Named(name string, c *ir.ContractionExpr) *ir.ContractionExpr {
	c.Name = name
	return c
}

// Indices returns the polynomials of a list of indices.
func Indices(idx ...*ir.PolyIndex) []ir.PolyExpr {
	ps := make([]ir.PolyExpr, len(idx))
	for i, x := range idx {
		ps[i] = x
	}
	return ps
}

func axes(x ir.Expr, prefix string) []*ir.PolyIndex {
	idx := make([]*ir.PolyIndex, x.Shape().Rank())
	for i := range idx {
		idx[i] = ir.NewIndex(fmt.Sprintf("%s%d", prefix, i))
	}
	return idx
}

// Reduce returns a contraction reducing all the axes of x with agg.
func Reduce(agg ir.AggregationOp, x ir.Expr) *ir.ContractionExpr {
	idx := axes(x, "x")
	return Contraction(agg, ir.ComboNone,
		ir.OutSpec(nil, nil),
		ir.Spec(x, Indices(idx...)...),
	)
}

// Sum returns O[] = +(X[x0, x1, ...]).
func Sum(x ir.Expr) *ir.ContractionExpr {
	return Reduce(ir.AggSum, x)
}

// Max returns O[] = >(X[x0, x1, ...]).
func Max(x ir.Expr) *ir.ContractionExpr {
	return Reduce(ir.AggMax, x)
}

// MatMul returns O[i, j : I, J] = +(A[i, k] * B[k, j]).
func MatMul(a, b ir.Expr) *ir.ContractionExpr {
	i, j, k := ir.NewIndex("i"), ir.NewIndex("j"), ir.NewIndex("k")
	return Contraction(ir.AggSum, ir.ComboMultiply,
		ir.OutSpec(Indices(i, j), ir.Ints(a.Shape().AxisLengths[0], b.Shape().AxisLengths[1])),
		ir.Spec(a, i, k),
		ir.Spec(b, k, j),
	)
}

// Transpose returns O[j, i : J, I] = =(X[i, j]).
func Transpose(x ir.Expr) *ir.ContractionExpr {
	i, j := ir.NewIndex("i"), ir.NewIndex("j")
	dims := x.Shape().AxisLengths
	return Contraction(ir.AggAssign, ir.ComboNone,
		ir.OutSpec(Indices(j, i), ir.Ints(dims[1], dims[0])),
		ir.Spec(x, i, j),
	)
}

// Elementwise returns O[x0, ... : X0, ...] = +(A[x0, ...] op B[x0, ...])
// for two tensors of the same shape and op either MULTIPLY or PLUS.
func Elementwise(op ir.CombinationOp, a, b ir.Expr) *ir.ContractionExpr {
	idx := axes(a, "x")
	return Contraction(ir.AggSum, op,
		ir.OutSpec(Indices(idx...), ir.DimsOf(a)),
		ir.Spec(a, Indices(idx...)...),
		ir.Spec(b, Indices(idx...)...),
	)
}
