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

// Package ir is the intermediate representation of tile programs.
//
// A tile program is a directed acyclic graph of expressions. Expressions
// are compared by identity: the same sub-expression can be used by many
// consumers. Expressions are never modified once built.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Expr is an expression in a tile program.
	// The set of expressions is closed: only the types defined in this
	// package implement Expr.
	Expr interface {
		fmt.Stringer
		// Shape of the value computed by the expression.
		Shape() *Shape
		expr()
	}

	// CallExpr applies a named operation to a list of arguments.
	CallExpr struct {
		Fn   string
		Args []Expr

		shape Shape
	}

	// ContractionExpr is a tensor equation in index notation.
	// The contraction loops over all the values of its indices
	// and, for each tuple of indices, combines the input values
	// with ComboOp and aggregates the result in the output using AggOp.
	ContractionExpr struct {
		// Name of the contraction. Only used for printing.
		Name        string
		AggOp       AggregationOp
		ComboOp     CombinationOp
		Inputs      []*TensorSpec
		Output      *TensorSpec
		Constraints []*Constraint
		// Default value for output elements written by no term.
		// Nil if the contraction has no default.
		Default Expr

		shape Shape
	}

	// TensorSpec indexes a tensor with a list of polynomials,
	// one per axis.
	TensorSpec struct {
		// Ref is the tensor being indexed. Nil for an output spec.
		Ref   Expr
		Index []PolyExpr
		// Dims are the axis lengths of an output. Nil for an input.
		Dims []DimExpr
	}

	// Constraint restricts the values of indices such that 0 <= Lhs < Rhs.
	Constraint struct {
		Lhs PolyExpr
		Rhs DimExpr
	}

	// ParamExpr is a tensor provided by the caller.
	ParamExpr struct {
		Name string

		shape Shape
	}

	// FloatConst is a floating point scalar literal.
	FloatConst struct {
		Value float64
	}

	// IntConst is an integer scalar literal.
	IntConst struct {
		Value int64
	}

	// DimExprExpr is the size of a dimension used as a value.
	DimExprExpr struct {
		Dim DimExpr
	}
)

var (
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*ContractionExpr)(nil)
	_ Expr = (*ParamExpr)(nil)
	_ Expr = (*FloatConst)(nil)
	_ Expr = (*IntConst)(nil)
	_ Expr = (*DimExprExpr)(nil)
)

// NewCallShaped returns a call with a shape computed by the caller.
func NewCallShaped(fn string, shape *Shape, args ...Expr) *CallExpr {
	return &CallExpr{Fn: fn, Args: args, shape: *shape}
}

func (*CallExpr) expr() {}

// Shape of the call result.
func (e *CallExpr) Shape() *Shape { return &e.shape }

// String returns a short description of the call.
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = label(arg)
	}
	return fmt.Sprintf("%s(%s)", e.Fn, strings.Join(args, ", "))
}

func (*ContractionExpr) expr() {}

// Shape of the contraction output.
// The shape is only valid after ComputeShape has been called.
func (e *ContractionExpr) Shape() *Shape { return &e.shape }

// String returns a short description of the contraction.
func (e *ContractionExpr) String() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("contraction<%s>(%s%s)", e.shape.String(), e.AggOp.Symbol(), e.ComboOp.Symbol())
}

// HasDefault returns true if the contraction has a default value.
func (e *ContractionExpr) HasDefault() bool {
	return e.Default != nil
}

// NewParam returns a new parameter.
func NewParam(name string, shape *Shape) *ParamExpr {
	return &ParamExpr{Name: name, shape: *shape}
}

func (*ParamExpr) expr() {}

// Shape of the parameter.
func (e *ParamExpr) Shape() *Shape { return &e.shape }

// String returns the name of the parameter.
func (e *ParamExpr) String() string { return e.Name }

// NewFloat returns a float literal.
func NewFloat(v float64) *FloatConst {
	return &FloatConst{Value: v}
}

func (*FloatConst) expr() {}

var floatConstShape = Scalar(Float32)

// Shape of a float literal.
func (e *FloatConst) Shape() *Shape { return floatConstShape.clone() }

// String representation of the literal.
func (e *FloatConst) String() string {
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eENI") {
		s += ".0"
	}
	return s
}

// NewInt returns an integer literal.
func NewInt(v int64) *IntConst {
	return &IntConst{Value: v}
}

func (*IntConst) expr() {}

var intConstShape = Scalar(Int32)

// Shape of an integer literal.
func (e *IntConst) Shape() *Shape { return intConstShape.clone() }

// String representation of the literal.
func (e *IntConst) String() string {
	return strconv.FormatInt(e.Value, 10)
}

// NewDim returns an expression for the size of a dimension.
func NewDim(dim DimExpr) *DimExprExpr {
	return &DimExprExpr{Dim: dim}
}

func (*DimExprExpr) expr() {}

// Shape of a dimension value.
func (e *DimExprExpr) Shape() *Shape { return intConstShape.clone() }

// String representation of the dimension.
func (e *DimExprExpr) String() string {
	return e.Dim.String()
}

// IsLeaf returns true if the expression has no operand.
func IsLeaf(e Expr) bool {
	switch e.(type) {
	case *ParamExpr, *FloatConst, *IntConst, *DimExprExpr:
		return true
	}
	return false
}

func label(e Expr) string {
	switch eT := e.(type) {
	case nil:
		return "<nil>"
	case *CallExpr:
		return eT.Fn + "(...)"
	default:
		return eT.String()
	}
}

// Spec returns an input spec indexing ref.
func Spec(ref Expr, index ...PolyExpr) *TensorSpec {
	return &TensorSpec{Ref: ref, Index: index}
}

// OutSpec returns an output spec.
func OutSpec(index []PolyExpr, dims []DimExpr) *TensorSpec {
	return &TensorSpec{Index: index, Dims: dims}
}

// String representation of the spec.
func (s *TensorSpec) String() string {
	index := make([]string, len(s.Index))
	for i, p := range s.Index {
		index[i] = p.String()
	}
	if s.Ref == nil {
		dims := make([]string, len(s.Dims))
		for i, d := range s.Dims {
			dims[i] = d.String()
		}
		return fmt.Sprintf("[%s : %s]", strings.Join(index, ", "), strings.Join(dims, ", "))
	}
	return fmt.Sprintf("%s[%s]", label(s.Ref), strings.Join(index, ", "))
}

// String representation of the constraint.
func (c *Constraint) String() string {
	return fmt.Sprintf("%s < %s", c.Lhs, c.Rhs)
}
