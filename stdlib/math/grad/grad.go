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

// Package grad computes the gradients of tile programs.
//
// Gradients are computed symbolically using reverse-mode automatic
// differentiation: the result of a gradient computation is a new
// expression of the same intermediate representation.
package grad

import (
	"fmt"
	"log/slog"

	"github.com/gx-org/tilegrad/base/logutil"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/stdlib/math/grad/deriv"
	"github.com/gx-org/tilegrad/stdlib/math/grad/revgraph"
	"github.com/gx-org/tilegrad/stdlib/math/grad/special"
)

type (
	// Option configures a gradient computation.
	Option func(*options)

	options struct {
		resolver       deriv.Resolver
		logger         *slog.Logger
		reduceName     string
		accumulateName string
	}
)

// WithResolver sets the resolver used to find the derivatives of calls.
// Builtin derivatives are used by default.
func WithResolver(r deriv.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger tracing the computation.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReduceName sets the name of the call reducing a broadcasted gradient
// to the shape of its expression.
func WithReduceName(name string) Option {
	return func(o *options) {
		o.reduceName = name
	}
}

// WithAccumulateName sets the name of the call summing the gradients
// flowing from different uses of an expression.
func WithAccumulateName(name string) Option {
	return func(o *options) {
		o.accumulateName = name
	}
}

func newOptions(opts []Option) options {
	o := options{
		reduceName:     ir.FnSimpleReduce,
		accumulateName: "add",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = deriv.Builtin()
	}
	if o.logger == nil {
		o.logger = logutil.Discard()
	}
	return o
}

// Gradient computes the derivatives of a seed expression with respect to
// the expressions it depends on.
type Gradient struct {
	opts  options
	seed  ir.Expr
	graph *revgraph.Graph

	derivs    map[ir.Expr]ir.Expr
	callGrads map[*ir.CallExpr][]ir.Expr
}

// New builds the graph of uses of the seed.
// The derivative of the seed with respect to itself is 1.
func New(seed ir.Expr, opts ...Option) (*Gradient, error) {
	o := newOptions(opts)
	graph, err := revgraph.Build(seed)
	if err != nil {
		return nil, err
	}
	if logutil.Enabled(o.logger) {
		logutil.Trace(o.logger, "use graph", "seed", seed, "nodes", graph.Stats())
	}
	return &Gradient{
		opts:      o,
		seed:      seed,
		graph:     graph,
		derivs:    map[ir.Expr]ir.Expr{seed: special.One()},
		callGrads: make(map[*ir.CallExpr][]ir.Expr),
	}, nil
}

// Seed returns the expression being differentiated.
func (g *Gradient) Seed() ir.Expr {
	return g.seed
}

// Graph returns the graph of uses of the seed.
func (g *Gradient) Graph() *revgraph.Graph {
	return g.graph
}

type frame struct {
	expr     ir.Expr
	expanded bool
}

// Derivative returns the derivative of the seed with respect to an expression.
// The same expression is returned for the same argument.
// The derivative of an expression not used by the seed is 0.
func (g *Gradient) Derivative(e ir.Expr) (ir.Expr, error) {
	if e == nil {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, nil, "cannot differentiate with respect to a nil expression")
	}
	logutil.Trace(g.opts.logger, "derivative requested", "expr", e)
	// Users of an expression are computed before the expression itself.
	// Expanded frames not yet computed form the current path from e.
	stack := []frame{{expr: e}}
	onPath := make(map[ir.Expr]bool)
	for len(stack) > 0 {
		top := len(stack) - 1
		current := stack[top].expr
		if _, done := g.derivs[current]; done {
			stack = stack[:top]
			continue
		}
		if !stack[top].expanded {
			stack[top].expanded = true
			onPath[current] = true
			for _, use := range g.graph.Uses(current) {
				if _, done := g.derivs[use.User]; done {
					continue
				}
				if onPath[use.User] {
					return nil, fmterr.Internalf(use.User, "cycle in the graph of uses")
				}
				stack = append(stack, frame{expr: use.User})
			}
			continue
		}
		d, err := g.accumulate(current)
		if err != nil {
			return nil, err
		}
		g.derivs[current] = d
		delete(onPath, current)
		stack = stack[:top]
	}
	d := g.derivs[e]
	logutil.Trace(g.opts.logger, "derivative computed", "expr", e, "derivative", d)
	return d, nil
}

// accumulate sums the gradients flowing from all the uses of an expression.
// The derivatives of all the users must have been computed.
func (g *Gradient) accumulate(e ir.Expr) (ir.Expr, error) {
	uses := g.graph.Uses(e)
	if len(uses) == 0 {
		return special.Zero(), nil
	}
	var total ir.Expr
	for _, use := range uses {
		dout, ok := g.derivs[use.User]
		if !ok {
			return nil, fmterr.Internalf(e, "derivative of user %s has not been computed", use.User)
		}
		local, err := g.local(dout, use)
		if err != nil {
			return nil, err
		}
		logutil.Trace(g.opts.logger, "local gradient", "expr", e, "use", use, "gradient", local)
		if total == nil {
			total = local
			continue
		}
		if total, err = g.add(total, local); err != nil {
			return nil, err
		}
	}
	shape := total.Shape()
	if shape.Rank() > 0 && !shape.SameDims(e.Shape()) {
		var err error
		if total, err = g.call(g.opts.reduceName, ir.Tensor(shape.DType, e.Shape().AxisLengths...), total, e); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (g *Gradient) local(dout ir.Expr, use revgraph.Use) (ir.Expr, error) {
	switch user := use.User.(type) {
	case *ir.CallExpr:
		return g.callGrad(dout, user, use.Index)
	case *ir.ContractionExpr:
		return g.contractionGrad(dout, user, use.Index)
	default:
		return nil, fmterr.Internalf(use.User, "invalid operation in gradient computation: %T", use.User)
	}
}

func (g *Gradient) add(x, y ir.Expr) (ir.Expr, error) {
	switch {
	case special.IsZero(x):
		return y, nil
	case special.IsZero(y):
		return x, nil
	}
	shape, err := ir.Broadcast(x.Shape(), y.Shape())
	if err != nil {
		return nil, fmterr.At(fmterr.ErrInternalInconsistency, x, err)
	}
	return g.call(g.opts.accumulateName, shape, x, y)
}

// call builds a call, inferring its shape if a rule exists for fn.
// Otherwise, the call has the given shape.
func (g *Gradient) call(fn string, shape *ir.Shape, args ...ir.Expr) (ir.Expr, error) {
	if !ir.HasShapeRule(fn) {
		return ir.NewCallShaped(fn, shape, args...), nil
	}
	call, err := ir.NewCall(fn, args...)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// ComputeGradients returns the derivatives of a loss with respect to
// a list of expressions, in the same order.
// A loss that is not a scalar is first summed over all its elements.
func ComputeGradients(wrts []ir.Expr, loss ir.Expr, opts ...Option) ([]ir.Expr, error) {
	if err := ir.Validate(loss); err != nil {
		return nil, err
	}
	seed, err := scalarLoss(loss)
	if err != nil {
		return nil, err
	}
	g, err := New(seed, opts...)
	if err != nil {
		return nil, err
	}
	grads := make([]ir.Expr, len(wrts))
	for i, wrt := range wrts {
		if grads[i], err = g.Derivative(wrt); err != nil {
			return nil, err
		}
	}
	return grads, nil
}

// scalarLoss returns O[] = +(L[x0, x1, ...]) if the loss is not a scalar.
func scalarLoss(loss ir.Expr) (ir.Expr, error) {
	shape := loss.Shape()
	if shape.IsTuple() {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, loss, "cannot differentiate a tuple")
	}
	if shape.Rank() == 0 {
		return loss, nil
	}
	index := make([]ir.PolyExpr, shape.Rank())
	for i := range index {
		index[i] = ir.NewIndex(fmt.Sprintf("x%d", i))
	}
	sum, err := ir.NewContraction(ir.AggSum, ir.ComboNone, ir.OutSpec(nil, nil), ir.Spec(loss, index...))
	if err != nil {
		return nil, err
	}
	return sum, nil
}
