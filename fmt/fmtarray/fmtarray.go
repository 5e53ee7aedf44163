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

// Package fmtarray formats arrays into string.
package fmtarray

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

const tab = "\t"

type printer[T dtype.GoDataType] struct {
	w       strings.Builder
	data    []T
	axes    []int
	strides []int
}

func newPrinter[T dtype.GoDataType](data []T, axes []int) (*printer[T], error) {
	p := &printer[T]{data: data, axes: axes, strides: make([]int, len(axes))}
	size := 1
	for i := len(axes) - 1; i >= 0; i-- {
		p.strides[i] = size
		size *= axes[i]
	}
	if size != len(data) {
		return nil, errors.Errorf("len(data)=%d does not match axes %v=%d", len(data), axes, size)
	}
	return p, nil
}

func formatValue[T dtype.GoDataType](x T) string {
	var s string
	switch xT := any(x).(type) {
	case float32:
		s = strconv.FormatFloat(float64(xT), 'f', 6, 32)
	case float64:
		s = strconv.FormatFloat(xT, 'f', 10, 64)
	default:
		return fmt.Sprint(x)
	}
	if strings.ContainsRune(s, '.') {
		s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// write prints the values of the sub-array starting at offset
// with axis as its first axis.
func (p *printer[T]) write(indent string, axis, offset int) {
	size := p.axes[axis]
	if axis == len(p.axes)-1 {
		vals := make([]string, size)
		for i := range vals {
			vals[i] = formatValue(p.data[offset+i])
		}
		p.w.WriteString("{" + strings.Join(vals, ", ") + "}")
		return
	}
	p.w.WriteString("{\n")
	for i := range size {
		p.w.WriteString(indent + tab)
		p.write(indent+tab, axis+1, offset+i*p.strides[axis])
		p.w.WriteString(",\n")
	}
	p.w.WriteString(indent + "}")
}

func (p *printer[T]) writeData() {
	if len(p.axes) == 0 {
		p.w.WriteString("(" + formatValue(p.data[0]) + ")")
		return
	}
	p.write("", 0, 0)
}

func (p *printer[T]) writeType() {
	for _, size := range p.axes {
		fmt.Fprintf(&p.w, "[%d]", size)
	}
	p.w.WriteString(dtype.Generic[T]().String())
}

// SDataPrint returns a string representation of the content of an array without the type.
func SDataPrint[T dtype.GoDataType](data []T, axes []int) string {
	p, err := newPrinter(data, axes)
	if err != nil {
		return err.Error()
	}
	p.writeData()
	return p.w.String()
}

// Sprint returns a string representation of an array.
func Sprint[T dtype.GoDataType](data []T, axes []int) string {
	p, err := newPrinter(data, axes)
	if err != nil {
		return err.Error()
	}
	p.writeType()
	p.writeData()
	return p.w.String()
}
