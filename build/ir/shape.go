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
	"slices"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/pkg/errors"
)

// Data types used by tile programs.
const (
	Invalid = dtype.Invalid
	Bool    = dtype.Bool
	Int32   = dtype.Int32
	Int64   = dtype.Int64
	Float32 = dtype.Float32
	Float64 = dtype.Float64
)

// Shape of a value: a data type, axis lengths and a layout tag.
// Tuples have no data type and no axes but a shape per element.
type Shape struct {
	shape.Shape
	Layout string
	Tuple  []*Shape
}

// Scalar returns the shape of a scalar.
func Scalar(dt dtype.DataType) *Shape {
	return &Shape{Shape: shape.Shape{DType: dt}}
}

// Tensor returns the shape of a tensor.
func Tensor(dt dtype.DataType, dims ...int) *Shape {
	return &Shape{Shape: shape.Shape{DType: dt, AxisLengths: dims}}
}

// TupleOf returns the shape of a tuple.
func TupleOf(elems ...*Shape) *Shape {
	return &Shape{Shape: shape.Shape{DType: Invalid}, Tuple: elems}
}

// WithLayout returns a copy of the shape with a different layout.
func (s *Shape) WithLayout(layout string) *Shape {
	c := s.clone()
	c.Layout = layout
	return c
}

// Rank returns the number of axes.
func (s *Shape) Rank() int {
	return len(s.AxisLengths)
}

// IsTuple returns true if the shape is the shape of a tuple.
func (s *Shape) IsTuple() bool {
	return s.Tuple != nil
}

// SameDims returns true if both shapes have the same axis lengths.
func (s *Shape) SameDims(o *Shape) bool {
	return slices.Equal(s.AxisLengths, o.AxisLengths)
}

// Size returns the number of elements in a tensor.
func (s *Shape) Size() int {
	return s.Shape.Size()
}

func (s *Shape) clone() *Shape {
	c := &Shape{
		Shape: shape.Shape{
			DType:       s.DType,
			AxisLengths: slices.Clone(s.AxisLengths),
		},
		Layout: s.Layout,
	}
	if s.Tuple != nil {
		c.Tuple = make([]*Shape, len(s.Tuple))
		for i, el := range s.Tuple {
			c.Tuple[i] = el.clone()
		}
	}
	return c
}

func (s *Shape) String() string {
	if s.IsTuple() {
		elems := make([]string, len(s.Tuple))
		for i, el := range s.Tuple {
			elems[i] = el.String()
		}
		return "(" + strings.Join(elems, ", ") + ")"
	}
	var b strings.Builder
	for _, d := range s.AxisLengths {
		fmt.Fprintf(&b, "[%d]", d)
	}
	b.WriteString(s.DType.String())
	return b.String()
}

var precedence = map[dtype.DataType]int{
	Bool:    1,
	Int32:   2,
	Int64:   3,
	Float32: 4,
	Float64: 5,
}

// Promote returns the data type of an operation combining x and y.
func Promote(x, y dtype.DataType) dtype.DataType {
	if precedence[y] > precedence[x] {
		return y
	}
	return x
}

// Broadcast returns the shape of an element-wise operation between x and y.
// Axes are aligned on the right and must be equal or 1.
func Broadcast(x, y *Shape) (*Shape, error) {
	if x.IsTuple() || y.IsTuple() {
		return broadcastTuples(x, y)
	}
	rank := max(x.Rank(), y.Rank())
	dims := make([]int, rank)
	for i := range rank {
		dx, dy := axisFromRight(x, rank-1-i), axisFromRight(y, rank-1-i)
		switch {
		case dx == dy, dy == 1:
			dims[i] = dx
		case dx == 1:
			dims[i] = dy
		default:
			return nil, errors.Errorf("cannot broadcast %s and %s", x, y)
		}
	}
	layout := x.Layout
	if layout == "" {
		layout = y.Layout
	}
	return &Shape{
		Shape: shape.Shape{
			DType:       Promote(x.DType, y.DType),
			AxisLengths: dims,
		},
		Layout: layout,
	}, nil
}

func axisFromRight(s *Shape, fromRight int) int {
	i := s.Rank() - 1 - fromRight
	if i < 0 {
		return 1
	}
	return s.AxisLengths[i]
}

func broadcastTuples(x, y *Shape) (*Shape, error) {
	if !x.IsTuple() || !y.IsTuple() || len(x.Tuple) != len(y.Tuple) {
		return nil, errors.Errorf("cannot broadcast %s and %s", x, y)
	}
	elems := make([]*Shape, len(x.Tuple))
	for i := range elems {
		var err error
		if elems[i], err = Broadcast(x.Tuple[i], y.Tuple[i]); err != nil {
			return nil, err
		}
	}
	return TupleOf(elems...), nil
}
