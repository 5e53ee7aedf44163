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
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/stdlib/math/grad/special"
)

// callGrad returns the gradient of a call argument.
// Gradients of all the arguments are computed together the first time
// one of them is requested.
func (g *Gradient) callGrad(dout ir.Expr, call *ir.CallExpr, idx int) (ir.Expr, error) {
	grads, ok := g.callGrads[call]
	if !ok {
		var err error
		if grads, err = g.argGrads(dout, call); err != nil {
			return nil, err
		}
		g.callGrads[call] = grads
	}
	if idx < 0 || idx >= len(grads) {
		return nil, fmterr.Internalf(call, "argument %d out of range", idx)
	}
	return grads[idx], nil
}

func (g *Gradient) argGrads(dout ir.Expr, call *ir.CallExpr) ([]ir.Expr, error) {
	switch call.Fn {
	case ir.FnTuple:
		return tupleGrads(dout, call)
	case ir.FnElement:
		return elementGrads(dout, call)
	case ir.FnReshape:
		return reshapeGrads(dout, call)
	}
	d, err := g.opts.resolver.Resolve(call.Fn)
	if err != nil {
		if fmterr.KindOf(err) == nil {
			err = fmterr.At(fmterr.ErrUnregisteredOperation, call, err)
		}
		return nil, err
	}
	grads, err := d.Apply(call, dout)
	if err != nil {
		return nil, err
	}
	if len(grads) != len(call.Args) {
		return nil, fmterr.Internalf(call, "derivative of %s returned %d gradients for %d arguments", call.Fn, len(grads), len(call.Args))
	}
	for i, grad := range grads {
		if grad == nil {
			return nil, fmterr.Internalf(call, "derivative of %s returned no gradient for argument %d", call.Fn, i)
		}
	}
	return grads, nil
}

func zeros(n int) []ir.Expr {
	grads := make([]ir.Expr, n)
	for i := range grads {
		grads[i] = special.Zero()
	}
	return grads
}

// tupleGrads extracts the gradient of each argument from the gradient of the tuple.
func tupleGrads(dout ir.Expr, call *ir.CallExpr) ([]ir.Expr, error) {
	if !dout.Shape().IsTuple() {
		if special.IsZero(dout) {
			return zeros(len(call.Args)), nil
		}
		return nil, fmterr.Internalf(call, "gradient %s of a tuple is not a tuple", dout)
	}
	grads := make([]ir.Expr, len(call.Args))
	for i := range grads {
		var err error
		if grads[i], err = ir.NewCall(ir.FnElement, dout, ir.NewInt(int64(i))); err != nil {
			return nil, err
		}
	}
	return grads, nil
}

// elementGrads builds a tuple with the gradient at the position of the element
// and zeros everywhere else.
func elementGrads(dout ir.Expr, call *ir.CallExpr) ([]ir.Expr, error) {
	if len(call.Args) != 2 {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 2", len(call.Args))
	}
	k, ok := ir.ElementIndex(call)
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrNotImplemented, call, "gradient of an element extracted with a non-literal index %s", call.Args[1])
	}
	tuple := call.Args[0].Shape()
	if !tuple.IsTuple() || k < 0 || k >= len(tuple.Tuple) {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "cannot extract element %d from %s", k, tuple)
	}
	elems := make([]ir.Expr, len(tuple.Tuple))
	for i := range elems {
		if i == k {
			elems[i] = dout
		} else {
			elems[i] = special.IntZero()
		}
	}
	dtuple, err := ir.NewCall(ir.FnTuple, elems...)
	if err != nil {
		return nil, err
	}
	return []ir.Expr{dtuple, special.IntZero()}, nil
}

// reshapeGrads reshapes the gradient back to the dimensions of the argument.
func reshapeGrads(dout ir.Expr, call *ir.CallExpr) ([]ir.Expr, error) {
	if len(call.Args) == 0 {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "reshape has no argument")
	}
	grads := make([]ir.Expr, len(call.Args))
	for i := range grads[1:] {
		grads[i+1] = special.IntZero()
	}
	if special.IsZero(dout) {
		grads[0] = special.Zero()
		return grads, nil
	}
	x := call.Args[0]
	args := []ir.Expr{dout}
	for _, dim := range x.Shape().AxisLengths {
		args = append(args, ir.NewInt(int64(dim)))
	}
	var err error
	if grads[0], err = ir.NewCall(ir.FnReshape, args...); err != nil {
		return nil, err
	}
	return grads, nil
}
