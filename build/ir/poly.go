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
	"fmt"

	"github.com/pkg/errors"
)

type (
	// PolyExpr is an integer polynomial of indices.
	PolyExpr interface {
		fmt.Stringer
		// Eval computes the value of the polynomial given the value of its indices.
		Eval(env map[*PolyIndex]int) (int, error)
		poly()
	}

	// PolyIndex is an index variable. Indices are compared by identity.
	PolyIndex struct {
		Name string
	}

	// PolyLiteral is an integer constant.
	PolyLiteral struct {
		Value int
	}

	// PolyOpKind is an arithmetic operator on polynomials.
	PolyOpKind int

	// PolyOp applies an operator to one (PolyNeg) or two polynomials.
	PolyOp struct {
		Op   PolyOpKind
		X, Y PolyExpr
	}
)

// Polynomial operators.
const (
	PolyAdd PolyOpKind = iota
	PolySub
	PolyMul
	PolyDiv
	PolyNeg
)

var polySymbols = map[PolyOpKind]string{
	PolyAdd: "+",
	PolySub: "-",
	PolyMul: "*",
	PolyDiv: "/",
	PolyNeg: "-",
}

// NewIndex returns a new index variable.
func NewIndex(name string) *PolyIndex {
	return &PolyIndex{Name: name}
}

// NewIndices returns one new index variable per name.
func NewIndices(names ...string) []*PolyIndex {
	idx := make([]*PolyIndex, len(names))
	for i, name := range names {
		idx[i] = NewIndex(name)
	}
	return idx
}

func (*PolyIndex) poly() {}

// Eval returns the value of the index in the environment.
func (p *PolyIndex) Eval(env map[*PolyIndex]int) (int, error) {
	v, ok := env[p]
	if !ok {
		return 0, errors.Errorf("index %s has no value", p.Name)
	}
	return v, nil
}

func (p *PolyIndex) String() string { return p.Name }

// Lit returns a polynomial literal.
func Lit(v int) *PolyLiteral {
	return &PolyLiteral{Value: v}
}

func (*PolyLiteral) poly() {}

// Eval returns the literal value.
func (p *PolyLiteral) Eval(map[*PolyIndex]int) (int, error) {
	return p.Value, nil
}

func (p *PolyLiteral) String() string { return fmt.Sprint(p.Value) }

// AddPoly returns x + y.
func AddPoly(x, y PolyExpr) *PolyOp { return &PolyOp{Op: PolyAdd, X: x, Y: y} }

// SubPoly returns x - y.
func SubPoly(x, y PolyExpr) *PolyOp { return &PolyOp{Op: PolySub, X: x, Y: y} }

// MulPoly returns x * y.
func MulPoly(x, y PolyExpr) *PolyOp { return &PolyOp{Op: PolyMul, X: x, Y: y} }

// DivPoly returns the floor division x / y.
func DivPoly(x, y PolyExpr) *PolyOp { return &PolyOp{Op: PolyDiv, X: x, Y: y} }

// NegPoly returns -x.
func NegPoly(x PolyExpr) *PolyOp { return &PolyOp{Op: PolyNeg, X: x} }

func (*PolyOp) poly() {}

func floorDiv(x, y int) int {
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

// Eval computes the value of the operation.
func (p *PolyOp) Eval(env map[*PolyIndex]int) (int, error) {
	x, err := p.X.Eval(env)
	if err != nil {
		return 0, err
	}
	if p.Op == PolyNeg {
		return -x, nil
	}
	y, err := p.Y.Eval(env)
	if err != nil {
		return 0, err
	}
	switch p.Op {
	case PolyAdd:
		return x + y, nil
	case PolySub:
		return x - y, nil
	case PolyMul:
		return x * y, nil
	case PolyDiv:
		if y == 0 {
			return 0, errors.Errorf("division by zero in %s", p)
		}
		return floorDiv(x, y), nil
	}
	return 0, errors.Errorf("unknown polynomial operator %d", p.Op)
}

func polyOperand(p PolyExpr) string {
	if _, ok := p.(*PolyOp); ok {
		return "(" + p.String() + ")"
	}
	return p.String()
}

func (p *PolyOp) String() string {
	if p.Op == PolyNeg {
		return "-" + polyOperand(p.X)
	}
	return fmt.Sprintf("%s %s %s", polyOperand(p.X), p.Op.Symbol(), polyOperand(p.Y))
}

// Symbol of the operator.
func (k PolyOpKind) Symbol() string {
	if s, ok := polySymbols[k]; ok {
		return s
	}
	return "?"
}

// AsIndex returns the index if the polynomial is a single index.
func AsIndex(p PolyExpr) (*PolyIndex, bool) {
	idx, ok := p.(*PolyIndex)
	return idx, ok
}

// AppendIndices appends to list all the indices used by p not already in list.
func AppendIndices(list []*PolyIndex, p PolyExpr) []*PolyIndex {
	switch pT := p.(type) {
	case *PolyIndex:
		for _, idx := range list {
			if idx == pT {
				return list
			}
		}
		return append(list, pT)
	case *PolyOp:
		list = AppendIndices(list, pT.X)
		if pT.Y != nil {
			list = AppendIndices(list, pT.Y)
		}
	}
	return list
}

// Indices returns all the indices used by a contraction, in order of appearance:
// output first, then inputs, then constraints.
func (e *ContractionExpr) Indices() []*PolyIndex {
	var list []*PolyIndex
	if e.Output != nil {
		for _, p := range e.Output.Index {
			list = AppendIndices(list, p)
		}
	}
	for _, in := range e.Inputs {
		for _, p := range in.Index {
			list = AppendIndices(list, p)
		}
	}
	for _, c := range e.Constraints {
		list = AppendIndices(list, c.Lhs)
	}
	return list
}
