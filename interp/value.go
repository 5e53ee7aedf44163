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
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/tilegrad/fmt/fmtarray"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

type (
	// Value computed by an expression.
	Value interface {
		fmt.Stringer
		value()
	}

	// Tensor is a dense row-major array of float64.
	// Booleans are stored as 0 or 1.
	Tensor struct {
		Dims []int
		Data []float64
	}

	// Tuple of values.
	Tuple []Value
)

var (
	_ Value = (*Tensor)(nil)
	_ Value = Tuple(nil)
)

// NewTensor returns a tensor given its data and its dimensions.
func NewTensor(data []float64, dims ...int) (*Tensor, error) {
	t := &Tensor{Dims: dims, Data: data}
	if size := t.size(); size != len(data) {
		return nil, errors.Errorf("%d values do not match dimensions %v of size %d", len(data), dims, size)
	}
	return t, nil
}

// Zeros returns a tensor filled with zeros.
func Zeros(dims ...int) *Tensor {
	t := &Tensor{Dims: slices.Clone(dims)}
	t.Data = make([]float64, t.size())
	return t
}

// Scalar returns a tensor with no axis.
func Scalar(v float64) *Tensor {
	return &Tensor{Data: []float64{v}}
}

func (*Tensor) value() {}

func (t *Tensor) size() int {
	size := 1
	for _, d := range t.Dims {
		size *= d
	}
	return size
}

// offset returns the position of an element in the data.
// False is returned if the element is out of bounds.
func (t *Tensor) offset(pos []int) (int, bool) {
	off := 0
	stride := 1
	for i := len(t.Dims) - 1; i >= 0; i-- {
		if pos[i] < 0 || pos[i] >= t.Dims[i] {
			return 0, false
		}
		off += pos[i] * stride
		stride *= t.Dims[i]
	}
	return off, true
}

// At returns the value of an element.
func (t *Tensor) At(pos ...int) (float64, error) {
	if len(pos) != len(t.Dims) {
		return 0, errors.Errorf("got %d indices for a tensor of rank %d", len(pos), len(t.Dims))
	}
	off, ok := t.offset(pos)
	if !ok {
		return 0, errors.Errorf("index %v out of bounds %v", pos, t.Dims)
	}
	return t.Data[off], nil
}

// Sum returns the sum of all the elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.Data)
}

// Clone returns a copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{Dims: slices.Clone(t.Dims), Data: slices.Clone(t.Data)}
}

func (t *Tensor) String() string {
	return fmtarray.Sprint(t.Data, t.Dims)
}

func (Tuple) value() {}

func (t Tuple) String() string {
	ss := make([]string, len(t))
	for i, v := range t {
		ss[i] = v.String()
	}
	return "(" + strings.Join(ss, ", ") + ")"
}

// forEach calls f for every position in a space of dimensions dims.
// The position given to f is reused between calls.
func forEach(dims []int, f func(pos []int) error) error {
	for _, d := range dims {
		if d <= 0 {
			return nil
		}
	}
	pos := make([]int, len(dims))
	for {
		if err := f(pos); err != nil {
			return err
		}
		axis := len(dims) - 1
		for ; axis >= 0; axis-- {
			pos[axis]++
			if pos[axis] < dims[axis] {
				break
			}
			pos[axis] = 0
		}
		if axis < 0 {
			return nil
		}
	}
}
