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

package ir

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/pkg/errors"
)

// NewContraction builds a contraction and computes its shape.
func NewContraction(agg AggregationOp, combo CombinationOp, out *TensorSpec, inputs ...*TensorSpec) (*ContractionExpr, error) {
	c := &ContractionExpr{
		AggOp:   agg,
		ComboOp: combo,
		Output:  out,
		Inputs:  inputs,
	}
	if err := c.ComputeShape(layoutOf(inputs)); err != nil {
		return nil, err
	}
	return c, nil
}

func layoutOf(inputs []*TensorSpec) string {
	for _, in := range inputs {
		if in.Ref == nil {
			continue
		}
		if layout := in.Ref.Shape().Layout; layout != "" {
			return layout
		}
	}
	return ""
}

// ComputeShape infers the shape of the contraction from its output spec
// and its inputs. The layout of the result is given by the caller.
// Calling ComputeShape more than once computes the same shape.
func (e *ContractionExpr) ComputeShape(layout string) error {
	dims, err := e.outputDims()
	if err != nil {
		return fmterr.At(fmterr.ErrInvalidExpr, e, err)
	}
	if err := e.checkInputs(); err != nil {
		return fmterr.At(fmterr.ErrInvalidExpr, e, err)
	}
	dt, err := e.dataType()
	if err != nil {
		return fmterr.At(fmterr.ErrInvalidExpr, e, err)
	}
	shape := Tensor(dt, dims...)
	shape.Layout = layout
	e.shape = *shape
	return nil
}

func (e *ContractionExpr) outputDims() ([]int, error) {
	if e.Output == nil {
		return nil, errors.Errorf("contraction has no output")
	}
	if len(e.Output.Index) != len(e.Output.Dims) {
		return nil, errors.Errorf("output has %d indices but %d dimensions", len(e.Output.Index), len(e.Output.Dims))
	}
	dims := make([]int, len(e.Output.Dims))
	for i, dim := range e.Output.Dims {
		var err error
		if dims[i], err = dim.Eval(); err != nil {
			return nil, err
		}
		if dims[i] < 0 {
			return nil, errors.Errorf("output axis %d has a negative size %d", i, dims[i])
		}
	}
	return dims, nil
}

func (e *ContractionExpr) checkInputs() error {
	if len(e.Inputs) == 0 {
		return errors.Errorf("contraction has no input")
	}
	for i, in := range e.Inputs {
		if in == nil || in.Ref == nil {
			return errors.Errorf("input %d is nil", i)
		}
		shape := in.Ref.Shape()
		if shape.IsTuple() {
			return errors.Errorf("input %d is a tuple", i)
		}
		if len(in.Index) != shape.Rank() {
			return errors.Errorf("input %d: %s of rank %d indexed with %d indices", i, label(in.Ref), shape.Rank(), len(in.Index))
		}
	}
	return nil
}

func (e *ContractionExpr) dataType() (dtype.DataType, error) {
	switch e.ComboOp {
	case ComboEq:
		return Bool, nil
	case ComboCond:
		if len(e.Inputs) != 3 {
			return Invalid, errors.Errorf("%s combination requires 3 inputs but got %d", e.ComboOp, len(e.Inputs))
		}
		return e.Inputs[2].Ref.Shape().DType, nil
	}
	dt := e.Inputs[0].Ref.Shape().DType
	for _, in := range e.Inputs[1:] {
		dt = Promote(dt, in.Ref.Shape().DType)
	}
	return dt, nil
}
