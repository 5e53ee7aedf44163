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

// Package interp evaluates tile programs on float64 tensors.
//
// The evaluator is a reference implementation used to check the values
// computed by programs, including the programs computing gradients.
package interp

import (
	"slices"

	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
)

// Params maps parameters of a program to their values.
type Params map[*ir.ParamExpr]*Tensor

// Eval evaluates an expression given the values of its parameters.
func Eval(root ir.Expr, params Params) (Value, error) {
	vals, err := EvalAll([]ir.Expr{root}, params)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

// EvalAll evaluates a list of expressions.
// Sub-expressions shared by the expressions are evaluated once.
func EvalAll(roots []ir.Expr, params Params) ([]Value, error) {
	ev := &evaluator{params: params, vals: make(map[ir.Expr]Value)}
	out := make([]Value, len(roots))
	for i, root := range roots {
		var err error
		if out[i], err = ev.eval(root); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type evaluator struct {
	params Params
	vals   map[ir.Expr]Value
}

// eval evaluates the operands of an expression before the expression itself.
func (ev *evaluator) eval(root ir.Expr) (Value, error) {
	type frame struct {
		expr     ir.Expr
		expanded bool
	}
	stack := []frame{{expr: root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		current := stack[top].expr
		if current == nil {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, nil, "cannot evaluate a nil expression")
		}
		if _, done := ev.vals[current]; done {
			stack = stack[:top]
			continue
		}
		if !stack[top].expanded {
			stack[top].expanded = true
			for _, op := range ir.Operands(current) {
				if _, done := ev.vals[op]; !done {
					stack = append(stack, frame{expr: op})
				}
			}
			continue
		}
		val, err := ev.evalExpr(current)
		if err != nil {
			return nil, err
		}
		ev.vals[current] = val
		stack = stack[:top]
	}
	return ev.vals[root], nil
}

func (ev *evaluator) evalExpr(expr ir.Expr) (Value, error) {
	switch exprT := expr.(type) {
	case *ir.ParamExpr:
		return ev.evalParam(exprT)
	case *ir.FloatConst:
		return Scalar(exprT.Value), nil
	case *ir.IntConst:
		return Scalar(float64(exprT.Value)), nil
	case *ir.DimExprExpr:
		dim, err := exprT.Dim.Eval()
		if err != nil {
			return nil, fmterr.At(fmterr.ErrInvalidExpr, exprT, err)
		}
		return Scalar(float64(dim)), nil
	case *ir.CallExpr:
		return ev.evalCall(exprT)
	case *ir.ContractionExpr:
		return ev.evalContraction(exprT)
	default:
		return nil, fmterr.Internalf(expr, "cannot evaluate expression: %T not supported", expr)
	}
}

func (ev *evaluator) evalParam(param *ir.ParamExpr) (Value, error) {
	val, ok := ev.params[param]
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, param, "no value for parameter")
	}
	if !slices.Equal(val.Dims, param.Shape().AxisLengths) {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, param, "value of dimensions %v does not match %s", val.Dims, param.Shape())
	}
	return val, nil
}

// tensor returns the value of an operand as a tensor.
func (ev *evaluator) tensor(at, operand ir.Expr) (*Tensor, error) {
	val := ev.vals[operand]
	t, ok := val.(*Tensor)
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, at, "operand %s is %T and not a tensor", operand, val)
	}
	return t, nil
}
