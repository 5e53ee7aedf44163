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

package grad

import (
	"slices"

	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/stdlib/math/grad/special"
)

// contractionGrad returns the gradient of an input of a contraction.
// idx equal to the number of inputs is the default of the contraction.
func (g *Gradient) contractionGrad(dout ir.Expr, c *ir.ContractionExpr, idx int) (ir.Expr, error) {
	if idx == len(c.Inputs) && c.HasDefault() {
		return dout, nil
	}
	if c.ComboOp == ir.ComboEq {
		return special.IntZero(), nil
	}
	switch c.AggOp {
	case ir.AggSum, ir.AggAssign:
		return g.sumOp(dout, c, idx)
	case ir.AggMin, ir.AggMax:
		return g.extremeOp(dout, c, idx)
	case ir.AggProd:
		return nil, fmterr.Errorf(fmterr.ErrUnsupportedOperation, c, "PROD does not support differentiation")
	}
	return nil, fmterr.Errorf(fmterr.ErrUnsupportedOperation, c, "invalid contraction configuration: %s aggregation with %s combination", c.AggOp, c.ComboOp)
}

// doutSpec indexes the gradient of a contraction with the index of its output.
// A nil spec is returned if dout is a literal zero that cannot be indexed.
func doutSpec(dout ir.Expr, c *ir.ContractionExpr) (*ir.TensorSpec, error) {
	rank := dout.Shape().Rank()
	switch {
	case dout.Shape().IsTuple():
		return nil, fmterr.Internalf(c, "gradient %s of a contraction is a tuple", dout)
	case rank == len(c.Output.Index):
		return ir.Spec(dout, c.Output.Index...), nil
	case special.IsZero(dout):
		return nil, nil
	}
	return nil, fmterr.Internalf(c, "gradient %s of rank %d does not match output %s", dout, rank, c.Output)
}

// wrtOutput returns the output spec of the gradient of an input: the input
// index with the dimensions of the indexed tensor.
func wrtOutput(wrt *ir.TensorSpec) *ir.TensorSpec {
	return ir.OutSpec(wrt.Index, ir.DimsOf(wrt.Ref))
}

func inferShape(c, dop *ir.ContractionExpr, wrt *ir.TensorSpec) (ir.Expr, error) {
	if err := dop.ComputeShape(wrt.Ref.Shape().Layout); err != nil {
		return nil, fmterr.At(fmterr.ErrInternalInconsistency, c, err)
	}
	return dop, nil
}

// sumOp differentiates a sum of products or a sum of sums.
//
// For O[o] = +(A[a] * B[b]), dA[a] = +(dO[o] * B[b]).
// For O[o] = +(A[a] + B[b]), dA[a] = +(dO[o]).
func (g *Gradient) sumOp(dout ir.Expr, c *ir.ContractionExpr, idx int) (ir.Expr, error) {
	if idx < 0 || idx >= len(c.Inputs) {
		return nil, fmterr.Internalf(c, "input %d out of range in a sum", idx)
	}
	dop := &ir.ContractionExpr{
		AggOp:       ir.AggSum,
		ComboOp:     ir.ComboNone,
		Constraints: c.Constraints,
	}
	var dropped []*ir.TensorSpec
	dpos := 0
	for i, in := range c.Inputs {
		if i == idx {
			dpos = len(dop.Inputs)
			dop.Inputs = append(dop.Inputs, nil)
			continue
		}
		switch c.ComboOp {
		case ir.ComboMultiply:
			dop.Inputs = append(dop.Inputs, in)
			dop.ComboOp = ir.ComboMultiply
		case ir.ComboPlus:
			dropped = append(dropped, in)
		default:
			return nil, fmterr.Errorf(fmterr.ErrUnsupportedOperation, c, "cannot differentiate %s combination with %d inputs", c.ComboOp, len(c.Inputs))
		}
	}
	dspec, err := doutSpec(dout, c)
	if err != nil {
		return nil, err
	}
	if dspec == nil {
		return special.Zero(), nil
	}
	dop.Inputs[dpos] = dspec
	wrt := c.Inputs[idx]
	dop.Output = wrtOutput(wrt)
	if err := checkDropped(c, dop, dropped); err != nil {
		return nil, err
	}
	return inferShape(c, dop, wrt)
}

// checkDropped checks that the inputs dropped from a sum do not carry
// indices absent from the gradient: the number of values taken by such
// indices would be lost.
func checkDropped(c, dop *ir.ContractionExpr, dropped []*ir.TensorSpec) error {
	if len(dropped) == 0 {
		return nil
	}
	kept := dop.Indices()
	for _, in := range dropped {
		for _, p := range in.Index {
			for _, index := range ir.AppendIndices(nil, p) {
				if !slices.Contains(kept, index) {
					return fmterr.Errorf(fmterr.ErrUnsupportedOperation, c, "index %s of %s only appears in a term of the sum", index, in)
				}
			}
		}
	}
	return nil
}

// extremeOp differentiates a min or a max by sending the gradient to
// the elements equal to the output.
//
// For O[o] = >(A[a]), dA[a] = +(A[a] == O[o] ? dO[o]).
func (g *Gradient) extremeOp(dout ir.Expr, c *ir.ContractionExpr, idx int) (ir.Expr, error) {
	if len(c.Inputs) != 1 || c.ComboOp != ir.ComboNone {
		return nil, fmterr.Errorf(fmterr.ErrUnsupportedOperation, c, "cannot differentiate %s with %s combination and %d inputs", c.AggOp, c.ComboOp, len(c.Inputs))
	}
	if idx != 0 {
		return nil, fmterr.Internalf(c, "input %d out of range in %s", idx, c.AggOp)
	}
	dspec, err := doutSpec(dout, c)
	if err != nil {
		return nil, err
	}
	if dspec == nil {
		return special.Zero(), nil
	}
	in := c.Inputs[0]
	dop := &ir.ContractionExpr{
		AggOp:   ir.AggSum,
		ComboOp: ir.ComboCond,
		Inputs: []*ir.TensorSpec{
			in,
			ir.Spec(c, c.Output.Index...),
			dspec,
		},
		Output:      wrtOutput(in),
		Constraints: c.Constraints,
	}
	return inferShape(c, dop, in)
}
