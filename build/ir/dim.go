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
	"fmt"

	"github.com/pkg/errors"
)

type (
	// DimExpr is the size of a dimension.
	DimExpr interface {
		fmt.Stringer
		// Eval returns the size of the dimension.
		Eval() (int, error)
		dim()
	}

	// DimInt is a dimension of a known size.
	DimInt struct {
		Value int
	}

	// DimRef is the size of an axis of an expression.
	DimRef struct {
		Ref  Expr
		Axis int
	}
)

// Ints returns a list of dimensions of known sizes.
func Ints(vals ...int) []DimExpr {
	dims := make([]DimExpr, len(vals))
	for i, v := range vals {
		dims[i] = &DimInt{Value: v}
	}
	return dims
}

func (*DimInt) dim() {}

// Eval returns the size of the dimension.
func (d *DimInt) Eval() (int, error) { return d.Value, nil }

func (d *DimInt) String() string { return fmt.Sprint(d.Value) }

func (*DimRef) dim() {}

// Eval returns the axis length of the referenced expression.
func (d *DimRef) Eval() (int, error) {
	if d.Ref == nil {
		return 0, errors.Errorf("dimension references a nil expression")
	}
	dims := d.Ref.Shape().AxisLengths
	if d.Axis < 0 || d.Axis >= len(dims) {
		return 0, errors.Errorf("axis %d out of range for %s of rank %d", d.Axis, label(d.Ref), len(dims))
	}
	return dims[d.Axis], nil
}

func (d *DimRef) String() string {
	return fmt.Sprintf("dim(%s, %d)", label(d.Ref), d.Axis)
}

// DimsOf returns the dimensions of an expression as a list of known sizes.
func DimsOf(e Expr) []DimExpr {
	return Ints(e.Shape().AxisLengths...)
}
