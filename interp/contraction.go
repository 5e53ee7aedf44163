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

package interp

import (
	"math"
	"slices"

	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/pkg/errors"
)

type contraction struct {
	expr    *ir.ContractionExpr
	inputs  []*Tensor
	indices []*ir.PolyIndex
	ranges  []int
	env     map[*ir.PolyIndex]int
}

// evalContraction loops over all the values of the indices of a contraction.
// The range of an index is the smallest dimension it directly indexes.
// Terms accessing an element out of bounds are skipped.
func (ev *evaluator) evalContraction(expr *ir.ContractionExpr) (Value, error) {
	c := &contraction{
		expr:    expr,
		inputs:  make([]*Tensor, len(expr.Inputs)),
		indices: expr.Indices(),
		env:     make(map[*ir.PolyIndex]int),
	}
	for i, in := range expr.Inputs {
		var err error
		if c.inputs[i], err = ev.tensor(expr, in.Ref); err != nil {
			return nil, err
		}
	}
	dims := expr.Shape().AxisLengths
	if err := c.computeRanges(dims); err != nil {
		return nil, fmterr.At(fmterr.ErrInvalidExpr, expr, err)
	}
	out := Zeros(dims...)
	touched := make([]bool, len(out.Data))
	err := forEach(c.ranges, func(pos []int) error {
		for i, index := range c.indices {
			c.env[index] = pos[i]
		}
		return c.term(out, touched)
	})
	if err != nil {
		return nil, fmterr.At(fmterr.ErrInvalidExpr, expr, err)
	}
	if err := ev.fillDefault(expr, out, touched); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *contraction) computeRanges(outDims []int) error {
	bounds := make(map[*ir.PolyIndex]int)
	bound := func(p ir.PolyExpr, size int) {
		index, ok := ir.AsIndex(p)
		if !ok {
			return
		}
		if prev, ok := bounds[index]; !ok || size < prev {
			bounds[index] = size
		}
	}
	for axis, p := range c.expr.Output.Index {
		bound(p, outDims[axis])
	}
	for i, in := range c.expr.Inputs {
		for axis, p := range in.Index {
			bound(p, c.inputs[i].Dims[axis])
		}
	}
	for _, cstr := range c.expr.Constraints {
		size, err := cstr.Rhs.Eval()
		if err != nil {
			return err
		}
		bound(cstr.Lhs, size)
	}
	c.ranges = make([]int, len(c.indices))
	for i, index := range c.indices {
		size, ok := bounds[index]
		if !ok {
			return errors.Errorf("cannot infer the range of index %s", index)
		}
		c.ranges[i] = size
	}
	return nil
}

func (c *contraction) evalPos(index []ir.PolyExpr) ([]int, error) {
	pos := make([]int, len(index))
	for i, p := range index {
		var err error
		if pos[i], err = p.Eval(c.env); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// term computes the value of the current tuple of indices and aggregates it.
func (c *contraction) term(out *Tensor, touched []bool) error {
	for _, cstr := range c.expr.Constraints {
		v, err := cstr.Lhs.Eval(c.env)
		if err != nil {
			return err
		}
		size, err := cstr.Rhs.Eval()
		if err != nil {
			return err
		}
		if v < 0 || v >= size {
			return nil
		}
	}
	outPos, err := c.evalPos(c.expr.Output.Index)
	if err != nil {
		return err
	}
	outOff, ok := out.offset(outPos)
	if !ok {
		return nil
	}
	vals := make([]float64, len(c.inputs))
	for i, in := range c.expr.Inputs {
		pos, err := c.evalPos(in.Index)
		if err != nil {
			return err
		}
		off, ok := c.inputs[i].offset(pos)
		if !ok {
			return nil
		}
		vals[i] = c.inputs[i].Data[off]
	}
	v, err := combine(c.expr.ComboOp, vals)
	if err != nil {
		return err
	}
	if !touched[outOff] {
		touched[outOff] = true
		out.Data[outOff] = v
		return nil
	}
	out.Data[outOff], err = aggregate(c.expr.AggOp, out.Data[outOff], v)
	return err
}

func combine(op ir.CombinationOp, vals []float64) (float64, error) {
	switch op {
	case ir.ComboNone:
		if len(vals) != 1 {
			return 0, errors.Errorf("%s combination of %d inputs", op, len(vals))
		}
		return vals[0], nil
	case ir.ComboMultiply:
		r := 1.0
		for _, v := range vals {
			r *= v
		}
		return r, nil
	case ir.ComboPlus:
		r := 0.0
		for _, v := range vals {
			r += v
		}
		return r, nil
	case ir.ComboEq:
		return boolToFloat(vals[0] == vals[1]), nil
	case ir.ComboCond:
		if vals[0] == vals[1] {
			return vals[2], nil
		}
		return 0, nil
	}
	return 0, errors.Errorf("unknown combination %s", op)
}

func aggregate(op ir.AggregationOp, acc, v float64) (float64, error) {
	switch op {
	case ir.AggSum:
		return acc + v, nil
	case ir.AggAssign:
		return v, nil
	case ir.AggMin:
		return math.Min(acc, v), nil
	case ir.AggMax:
		return math.Max(acc, v), nil
	case ir.AggProd:
		return acc * v, nil
	}
	return 0, errors.Errorf("unknown aggregation %s", op)
}

// fillDefault sets the elements written by no term to the default value
// of the contraction, broadcasted to the output.
func (ev *evaluator) fillDefault(expr *ir.ContractionExpr, out *Tensor, touched []bool) error {
	if !expr.HasDefault() {
		return nil
	}
	def, err := ev.tensor(expr, expr.Default)
	if err != nil {
		return err
	}
	if dims, err := broadcastDims(def.Dims, out.Dims); err != nil || !slices.Equal(dims, out.Dims) {
		return fmterr.Errorf(fmterr.ErrInvalidExpr, expr, "cannot broadcast default %v to %v", def.Dims, out.Dims)
	}
	i := 0
	return forEach(out.Dims, func(pos []int) error {
		if !touched[i] {
			out.Data[i] = def.Data[broadcastOffset(def, pos)]
		}
		i++
		return nil
	})
}
