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
	"github.com/gx-org/tilegrad/build/fmterr"
	"go.uber.org/multierr"
)

// Operands returns the expressions used by e, in argument order.
// The default of a contraction comes after its inputs.
func Operands(e Expr) []Expr {
	switch eT := e.(type) {
	case *CallExpr:
		return eT.Args
	case *ContractionExpr:
		ops := make([]Expr, 0, len(eT.Inputs)+1)
		for _, in := range eT.Inputs {
			if in == nil {
				ops = append(ops, nil)
				continue
			}
			ops = append(ops, in.Ref)
		}
		if eT.Default != nil {
			ops = append(ops, eT.Default)
		}
		return ops
	}
	return nil
}

// Validate checks the structure of all the expressions reachable from root.
// All the problems found are returned, combined in a single error.
func Validate(root Expr) error {
	if root == nil {
		return fmterr.Errorf(fmterr.ErrInvalidExpr, nil, "nil expression")
	}
	var errs error
	seen := make(map[Expr]bool)
	stack := []Expr{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[e] {
			continue
		}
		seen[e] = true
		errs = multierr.Append(errs, validateNode(e))
		for _, op := range Operands(e) {
			if op != nil {
				stack = append(stack, op)
			}
		}
	}
	return errs
}

func validateNode(e Expr) (errs error) {
	invalid := func(format string, a ...any) {
		errs = multierr.Append(errs, fmterr.Errorf(fmterr.ErrInvalidExpr, e, format, a...))
	}
	switch eT := e.(type) {
	case *CallExpr:
		if eT.Fn == "" {
			invalid("call has no operation name")
		}
		for i, arg := range eT.Args {
			if arg == nil {
				invalid("argument %d is nil", i)
			}
		}
	case *ContractionExpr:
		if _, ok := aggNames[eT.AggOp]; !ok {
			invalid("unknown aggregation %s", eT.AggOp)
		}
		if err := eT.ComboOp.checkArity(len(eT.Inputs)); err != nil {
			invalid("%v", err)
		}
		if _, err := eT.outputDims(); err != nil {
			invalid("%v", err)
		}
		if err := eT.checkInputs(); err != nil {
			invalid("%v", err)
		}
		for i, c := range eT.Constraints {
			if c == nil || c.Lhs == nil || c.Rhs == nil {
				invalid("constraint %d is incomplete", i)
			}
		}
	case *DimExprExpr:
		if eT.Dim == nil {
			invalid("dimension is nil")
		}
	}
	return errs
}
