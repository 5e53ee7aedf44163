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
	"gonum.org/v1/gonum/floats"
)

var unaryFuncs = map[string]func(float64) float64{
	"ident": func(x float64) float64 { return x },
	"neg":   func(x float64) float64 { return -x },
	"exp":   math.Exp,
	"log":   math.Log,
	"sqrt":  math.Sqrt,
	"tanh":  math.Tanh,
	"sin":   math.Sin,
	"cos":   math.Cos,
}

type binaryFunc struct {
	// apply computes the result for one element.
	apply func(x, y float64) float64
	// dense computes dst = x op y for slices of the same length. Can be nil.
	dense func(dst, x, y []float64) []float64
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var binaryFuncs = map[string]binaryFunc{
	"add":    {apply: func(x, y float64) float64 { return x + y }, dense: floats.AddTo},
	"sub":    {apply: func(x, y float64) float64 { return x - y }, dense: floats.SubTo},
	"mul":    {apply: func(x, y float64) float64 { return x * y }, dense: floats.MulTo},
	"div":    {apply: func(x, y float64) float64 { return x / y }, dense: floats.DivTo},
	"cmp_eq": {apply: func(x, y float64) float64 { return boolToFloat(x == y) }},
	"cmp_ne": {apply: func(x, y float64) float64 { return boolToFloat(x != y) }},
	"cmp_lt": {apply: func(x, y float64) float64 { return boolToFloat(x < y) }},
	"cmp_le": {apply: func(x, y float64) float64 { return boolToFloat(x <= y) }},
	"cmp_gt": {apply: func(x, y float64) float64 { return boolToFloat(x > y) }},
	"cmp_ge": {apply: func(x, y float64) float64 { return boolToFloat(x >= y) }},
}

func (ev *evaluator) evalCall(call *ir.CallExpr) (Value, error) {
	args := make([]Value, len(call.Args))
	for i, arg := range call.Args {
		args[i] = ev.vals[arg]
	}
	if f, ok := unaryFuncs[call.Fn]; ok {
		if len(args) != 1 {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 1", len(args))
		}
		return mapUnary(call, f, args[0])
	}
	if f, ok := binaryFuncs[call.Fn]; ok {
		if len(args) != 2 {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 2", len(args))
		}
		val, err := mapBinary(f, args[0], args[1])
		if err != nil {
			return nil, fmterr.At(fmterr.ErrInvalidExpr, call, err)
		}
		return val, nil
	}
	switch call.Fn {
	case ir.FnTuple:
		return Tuple(args), nil
	case ir.FnElement:
		return evalElement(call, args)
	case ir.FnReshape:
		return ev.evalReshape(call)
	case ir.FnSimpleReduce:
		return ev.evalSimpleReduce(call)
	}
	return nil, fmterr.Errorf(fmterr.ErrNotImplemented, call, "cannot evaluate %s", call.Fn)
}

func mapUnary(call *ir.CallExpr, f func(float64) float64, x Value) (Value, error) {
	switch xT := x.(type) {
	case *Tensor:
		out := xT.Clone()
		for i, v := range out.Data {
			out.Data[i] = f(v)
		}
		return out, nil
	case Tuple:
		out := make(Tuple, len(xT))
		for i, el := range xT {
			var err error
			if out[i], err = mapUnary(call, f, el); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmterr.Internalf(call, "cannot evaluate %s on %T", call.Fn, x)
}

// mapBinary applies f element-wise to tuples or broadcasted tensors.
func mapBinary(f binaryFunc, x, y Value) (Value, error) {
	xTuple, xIsTuple := x.(Tuple)
	yTuple, yIsTuple := y.(Tuple)
	switch {
	case xIsTuple && yIsTuple:
		if len(xTuple) != len(yTuple) {
			return nil, errors.Errorf("tuples of different sizes: %d and %d", len(xTuple), len(yTuple))
		}
		out := make(Tuple, len(xTuple))
		for i := range out {
			var err error
			if out[i], err = mapBinary(f, xTuple[i], yTuple[i]); err != nil {
				return nil, err
			}
		}
		return out, nil
	case xIsTuple:
		out := make(Tuple, len(xTuple))
		for i := range out {
			var err error
			if out[i], err = mapBinary(f, xTuple[i], y); err != nil {
				return nil, err
			}
		}
		return out, nil
	case yIsTuple:
		out := make(Tuple, len(yTuple))
		for i := range out {
			var err error
			if out[i], err = mapBinary(f, x, yTuple[i]); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return broadcast(f, x.(*Tensor), y.(*Tensor))
}

// broadcastDims aligns dimensions on the right. Dimensions are equal or 1.
func broadcastDims(x, y []int) ([]int, error) {
	rank := max(len(x), len(y))
	dims := make([]int, rank)
	for i := range rank {
		dx, dy := axisFromRight(x, rank-1-i), axisFromRight(y, rank-1-i)
		switch {
		case dx == dy, dy == 1:
			dims[i] = dx
		case dx == 1:
			dims[i] = dy
		default:
			return nil, errors.Errorf("cannot broadcast %v and %v", x, y)
		}
	}
	return dims, nil
}

func axisFromRight(dims []int, fromRight int) int {
	i := len(dims) - 1 - fromRight
	if i < 0 {
		return 1
	}
	return dims[i]
}

// broadcastOffset returns the offset in t of the element broadcasted at pos.
func broadcastOffset(t *Tensor, pos []int) int {
	shift := len(pos) - len(t.Dims)
	off := 0
	for i, d := range t.Dims {
		off *= d
		if d != 1 {
			off += pos[shift+i]
		}
	}
	return off
}

func broadcast(f binaryFunc, x, y *Tensor) (*Tensor, error) {
	if f.dense != nil && slices.Equal(x.Dims, y.Dims) {
		out := Zeros(x.Dims...)
		f.dense(out.Data, x.Data, y.Data)
		return out, nil
	}
	dims, err := broadcastDims(x.Dims, y.Dims)
	if err != nil {
		return nil, err
	}
	out := Zeros(dims...)
	i := 0
	err = forEach(dims, func(pos []int) error {
		out.Data[i] = f.apply(x.Data[broadcastOffset(x, pos)], y.Data[broadcastOffset(y, pos)])
		i++
		return nil
	})
	return out, err
}

func evalElement(call *ir.CallExpr, args []Value) (Value, error) {
	k, ok := ir.ElementIndex(call)
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "element index is not an integer literal")
	}
	tuple, ok := args[0].(Tuple)
	if !ok || k < 0 || k >= len(tuple) {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "cannot extract element %d from %s", k, args[0])
	}
	return tuple[k], nil
}

func (ev *evaluator) evalReshape(call *ir.CallExpr) (Value, error) {
	x, err := ev.tensor(call, call.Args[0])
	if err != nil {
		return nil, err
	}
	dims := slices.Clone(call.Shape().AxisLengths)
	out, err := NewTensor(slices.Clone(x.Data), dims...)
	if err != nil {
		return nil, fmterr.At(fmterr.ErrInvalidExpr, call, err)
	}
	return out, nil
}

// evalSimpleReduce sums the elements of a tensor broadcasted to the
// dimensions of another tensor.
func (ev *evaluator) evalSimpleReduce(call *ir.CallExpr) (Value, error) {
	if len(call.Args) != 2 {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 2", len(call.Args))
	}
	x, err := ev.tensor(call, call.Args[0])
	if err != nil {
		return nil, err
	}
	out := Zeros(call.Args[1].Shape().AxisLengths...)
	if dims, err := broadcastDims(x.Dims, out.Dims); err != nil || !slices.Equal(dims, x.Dims) {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "cannot reduce %v to %v", x.Dims, out.Dims)
	}
	i := 0
	err = forEach(x.Dims, func(pos []int) error {
		out.Data[broadcastOffset(out, pos)] += x.Data[i]
		i++
		return nil
	})
	return out, err
}
