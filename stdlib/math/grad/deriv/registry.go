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

// Package deriv maps operation names to derivative rules.
//
// A rule receives a call, the gradient of the loss with respect to the
// output of the call, and returns the gradient of the loss with respect
// to each argument of the call.
package deriv

import (
	"slices"

	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
)

type (
	// UserFunc computes the gradients of a call on behalf of a rule.
	// ctx is the context given when the function has been registered.
	UserFunc func(ctx any, call *ir.CallExpr, dout ir.Expr, args []ir.Expr) ([]ir.Expr, error)

	// Rule returns one gradient per argument of a call given the
	// gradient dout of its output.
	Rule func(call *ir.CallExpr, dout ir.Expr, args []ir.Expr, userFn UserFunc, userCtx any) ([]ir.Expr, error)

	// Deriv is a registered rule with its auxiliary callback.
	Deriv struct {
		Fn      Rule
		UserFn  UserFunc
		UserCtx any
	}

	// Resolver finds the derivative of an operation given its name.
	Resolver interface {
		Resolve(fn string) (*Deriv, error)
	}

	// ResolverFunc is a function implementing Resolver.
	ResolverFunc func(fn string) (*Deriv, error)
)

// Resolve calls the function.
func (f ResolverFunc) Resolve(fn string) (*Deriv, error) {
	return f(fn)
}

// Apply calls the rule with the auxiliary callback of the derivative.
func (d *Deriv) Apply(call *ir.CallExpr, dout ir.Expr) ([]ir.Expr, error) {
	return d.Fn(call, dout, call.Args, d.UserFn, d.UserCtx)
}

// Registry of derivatives.
type Registry struct {
	derivs map[string]*Deriv
}

var _ Resolver = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{derivs: make(map[string]*Deriv)}
}

type name string

func (n name) String() string { return string(n) }

// Register a derivative for an operation.
func (r *Registry) Register(fn string, d *Deriv) error {
	if d == nil || d.Fn == nil {
		return fmterr.Errorf(fmterr.ErrInvalidExpr, name(fn), "derivative has no rule")
	}
	if _, ok := r.derivs[fn]; ok {
		return fmterr.Errorf(fmterr.ErrInvalidExpr, name(fn), "derivative already registered")
	}
	r.derivs[fn] = d
	return nil
}

// RegisterRule registers a rule without auxiliary callback.
func (r *Registry) RegisterRule(fn string, rule Rule) error {
	return r.Register(fn, &Deriv{Fn: rule})
}

// RegisterUser registers a derivative computed by a user function.
func (r *Registry) RegisterUser(fn string, userFn UserFunc, ctx any) error {
	if userFn == nil {
		return fmterr.Errorf(fmterr.ErrInvalidExpr, name(fn), "nil user function")
	}
	return r.Register(fn, &Deriv{Fn: callUser, UserFn: userFn, UserCtx: ctx})
}

func callUser(call *ir.CallExpr, dout ir.Expr, args []ir.Expr, userFn UserFunc, userCtx any) ([]ir.Expr, error) {
	return userFn(userCtx, call, dout, args)
}

// Resolve returns the derivative registered for an operation.
func (r *Registry) Resolve(fn string) (*Deriv, error) {
	d, ok := r.derivs[fn]
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrUnregisteredOperation, name(fn), "no derivative registered")
	}
	return d, nil
}

// Names returns the sorted list of operations with a derivative.
func (r *Registry) Names() []string {
	names := maps.Keys(r.derivs)
	slices.Sort(names)
	return names
}

// Merge registers all the derivatives of other into r.
// Operations already registered in r are reported and left unchanged.
func (r *Registry) Merge(other *Registry) (errs error) {
	for _, fn := range other.Names() {
		errs = multierr.Append(errs, r.Register(fn, other.derivs[fn]))
	}
	return errs
}
