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

package deriv

import (
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/stdlib/math/grad/special"
)

// builder builds calls and keeps the first error.
type builder struct {
	err error
}

func (b *builder) call(fn string, args ...ir.Expr) ir.Expr {
	if b.err != nil {
		return nil
	}
	call, err := ir.NewCall(fn, args...)
	if err != nil {
		b.err = err
		return nil
	}
	return call
}

func (b *builder) grads(grads ...ir.Expr) ([]ir.Expr, error) {
	if b.err != nil {
		return nil, b.err
	}
	return grads, nil
}

// unary defines the derivative of a single argument operation.
func unary(f func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr) Rule {
	return func(call *ir.CallExpr, dout ir.Expr, args []ir.Expr, _ UserFunc, _ any) ([]ir.Expr, error) {
		if len(args) != 1 {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 1", len(args))
		}
		b := &builder{}
		return b.grads(f(b, call, dout, args[0]))
	}
}

// binary defines the derivative of a two arguments operation.
func binary(f func(b *builder, call *ir.CallExpr, dout, x, y ir.Expr) (ir.Expr, ir.Expr)) Rule {
	return func(call *ir.CallExpr, dout ir.Expr, args []ir.Expr, _ UserFunc, _ any) ([]ir.Expr, error) {
		if len(args) != 2 {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "got %d arguments but want 2", len(args))
		}
		b := &builder{}
		dx, dy := f(b, call, dout, args[0], args[1])
		return b.grads(dx, dy)
	}
}

func zeros(_ *ir.CallExpr, _ ir.Expr, args []ir.Expr, _ UserFunc, _ any) ([]ir.Expr, error) {
	grads := make([]ir.Expr, len(args))
	for i := range grads {
		grads[i] = special.Zero()
	}
	return grads, nil
}

var builtins = map[string]Rule{
	"ident": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return dout
	}),
	"neg": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("neg", dout)
	}),
	"exp": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("mul", dout, call)
	}),
	"log": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("div", dout, x)
	}),
	"sqrt": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("div", dout, b.call("mul", ir.NewFloat(2), call))
	}),
	"tanh": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("mul", dout, b.call("sub", special.One(), b.call("mul", call, call)))
	}),
	"sin": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("mul", dout, b.call("cos", x))
	}),
	"cos": unary(func(b *builder, call *ir.CallExpr, dout, x ir.Expr) ir.Expr {
		return b.call("neg", b.call("mul", dout, b.call("sin", x)))
	}),
	"add": binary(func(b *builder, call *ir.CallExpr, dout, x, y ir.Expr) (ir.Expr, ir.Expr) {
		return dout, dout
	}),
	"sub": binary(func(b *builder, call *ir.CallExpr, dout, x, y ir.Expr) (ir.Expr, ir.Expr) {
		return dout, b.call("neg", dout)
	}),
	"mul": binary(func(b *builder, call *ir.CallExpr, dout, x, y ir.Expr) (ir.Expr, ir.Expr) {
		return b.call("mul", dout, y), b.call("mul", dout, x)
	}),
	// d(x/y)/dy = -(x/y)/y
	"div": binary(func(b *builder, call *ir.CallExpr, dout, x, y ir.Expr) (ir.Expr, ir.Expr) {
		return b.call("div", dout, y), b.call("neg", b.call("mul", dout, b.call("div", call, y)))
	}),
	"cmp_eq": zeros,
	"cmp_ne": zeros,
	"cmp_lt": zeros,
	"cmp_le": zeros,
	"cmp_gt": zeros,
	"cmp_ge": zeros,
}

// Builtin returns a new registry with the derivatives of the builtin
// element-wise operations.
func Builtin() *Registry {
	r := NewRegistry()
	for fn, rule := range builtins {
		r.derivs[fn] = &Deriv{Fn: rule}
	}
	return r
}
