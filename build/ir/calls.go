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
	"github.com/pkg/errors"
)

// Names of the operations with a structural meaning.
const (
	// FnTuple builds a tuple from its arguments.
	FnTuple = "tuple"
	// FnElement extracts an element from a tuple: element(t, k).
	FnElement = "element"
	// FnReshape changes the axes of a tensor: reshape(x, dims...).
	FnReshape = "reshape"
	// FnSimpleReduce sums its first argument down to the shape
	// of its second argument: simple_reduce(x, like).
	FnSimpleReduce = "simple_reduce"
)

type shapeRule func(args []Expr) (*Shape, error)

var (
	unaryOps = []string{
		"ident", "neg", "exp", "log", "sqrt", "tanh", "sin", "cos",
	}
	binaryOps = []string{
		"add", "sub", "mul", "div",
	}
	comparisonOps = []string{
		"cmp_eq", "cmp_ne", "cmp_lt", "cmp_le", "cmp_gt", "cmp_ge",
	}

	shapeRules = map[string]shapeRule{
		FnTuple:        tupleShape,
		FnElement:      elementShape,
		FnReshape:      reshapeShape,
		FnSimpleReduce: simpleReduceShape,
	}
)

func init() {
	for _, fn := range unaryOps {
		shapeRules[fn] = unaryShape
	}
	for _, fn := range binaryOps {
		shapeRules[fn] = binaryShape
	}
	for _, fn := range comparisonOps {
		shapeRules[fn] = comparisonShape
	}
}

// HasShapeRule returns true if NewCall can infer the shape of a call to fn.
func HasShapeRule(fn string) bool {
	_, ok := shapeRules[fn]
	return ok
}

// NewCall returns a call with its shape inferred from its arguments.
func NewCall(fn string, args ...Expr) (*CallExpr, error) {
	call := &CallExpr{Fn: fn, Args: args}
	for i, arg := range args {
		if arg == nil {
			return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "argument %d is nil", i)
		}
	}
	rule, ok := shapeRules[fn]
	if !ok {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, call, "no shape inference rule for %q", fn)
	}
	shape, err := rule(args)
	if err != nil {
		return nil, fmterr.At(fmterr.ErrInvalidExpr, call, err)
	}
	call.shape = *shape
	return call, nil
}

func checkNumArgs(args []Expr, want int) error {
	if len(args) != want {
		return errors.Errorf("got %d arguments but want %d", len(args), want)
	}
	return nil
}

func unaryShape(args []Expr) (*Shape, error) {
	if err := checkNumArgs(args, 1); err != nil {
		return nil, err
	}
	return args[0].Shape().clone(), nil
}

func binaryShape(args []Expr) (*Shape, error) {
	if err := checkNumArgs(args, 2); err != nil {
		return nil, err
	}
	return Broadcast(args[0].Shape(), args[1].Shape())
}

func comparisonShape(args []Expr) (*Shape, error) {
	shape, err := binaryShape(args)
	if err != nil {
		return nil, err
	}
	shape.DType = Bool
	return shape, nil
}

func simpleReduceShape(args []Expr) (*Shape, error) {
	if err := checkNumArgs(args, 2); err != nil {
		return nil, err
	}
	x, like := args[0].Shape(), args[1].Shape()
	if x.IsTuple() || like.IsTuple() {
		return nil, errors.Errorf("cannot reduce %s to %s", x, like)
	}
	shape := like.clone()
	shape.DType = x.DType
	return shape, nil
}

func tupleShape(args []Expr) (*Shape, error) {
	elems := make([]*Shape, len(args))
	for i, arg := range args {
		elems[i] = arg.Shape().clone()
	}
	return TupleOf(elems...), nil
}

// ElementIndex returns the literal index of an element call.
func ElementIndex(call *CallExpr) (int, bool) {
	if len(call.Args) != 2 {
		return 0, false
	}
	k, ok := call.Args[1].(*IntConst)
	if !ok {
		return 0, false
	}
	return int(k.Value), true
}

func elementShape(args []Expr) (*Shape, error) {
	if err := checkNumArgs(args, 2); err != nil {
		return nil, err
	}
	tuple := args[0].Shape()
	if !tuple.IsTuple() {
		return nil, errors.Errorf("cannot extract an element from %s", tuple)
	}
	k, ok := args[1].(*IntConst)
	if !ok {
		return nil, errors.Errorf("element index %s is not an integer literal", args[1])
	}
	if k.Value < 0 || int(k.Value) >= len(tuple.Tuple) {
		return nil, errors.Errorf("element index %d out of range for %s", k.Value, tuple)
	}
	return tuple.Tuple[k.Value].clone(), nil
}

// IntValue returns the value of an integer literal or a dimension.
func IntValue(e Expr) (int, error) {
	switch eT := e.(type) {
	case *IntConst:
		return int(eT.Value), nil
	case *DimExprExpr:
		return eT.Dim.Eval()
	}
	return 0, errors.Errorf("%s is not an integer literal or a dimension", e)
}

func reshapeShape(args []Expr) (*Shape, error) {
	if len(args) < 1 {
		return nil, errors.Errorf("reshape requires at least one argument")
	}
	x := args[0].Shape()
	if x.IsTuple() {
		return nil, errors.Errorf("cannot reshape %s", x)
	}
	dims := make([]int, len(args)-1)
	for i, arg := range args[1:] {
		var err error
		if dims[i], err = IntValue(arg); err != nil {
			return nil, err
		}
	}
	shape := Tensor(x.DType, dims...)
	shape.Layout = x.Layout
	if shape.Size() != x.Size() {
		return nil, errors.Errorf("cannot reshape %s into %s", x, shape)
	}
	return shape, nil
}
