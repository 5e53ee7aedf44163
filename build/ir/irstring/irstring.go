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

// Package irstring builds a string representation of a tile program.
package irstring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/tilegrad/base/uname"
	"github.com/gx-org/tilegrad/build/ir"
)

type printer struct {
	unames *uname.Unique
	names  map[ir.Expr]string
	lines  []string
}

// String returns the program computing root, one line per call or contraction,
// in dependency order. Calls and contractions without a name are named
// _X0, _X1, ... A leaf is printed on its own.
func String(root ir.Expr) string {
	p := &printer{
		unames: uname.New(),
		names:  make(map[ir.Expr]string),
	}
	p.reserveParams(root)
	p.process(root)
	if len(p.lines) == 0 {
		return p.name(root)
	}
	return strings.Join(p.lines, "\n")
}

type frame struct {
	expr     ir.Expr
	expanded bool
}

// reserveParams names the parameters before any generated name is handed
// out. The first parameter with a given name keeps it.
func (p *printer) reserveParams(root ir.Expr) {
	seen := make(map[ir.Expr]bool)
	stack := []ir.Expr{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true
		if param, ok := e.(*ir.ParamExpr); ok {
			p.names[param] = p.paramName(param)
			continue
		}
		for _, op := range slices.Backward(ir.Operands(e)) {
			stack = append(stack, op)
		}
	}
}

func (p *printer) paramName(param *ir.ParamExpr) string {
	if p.unames.Taken(param.Name) {
		return p.unames.Name(param.Name)
	}
	p.unames.Register(param.Name)
	return param.Name
}

func (p *printer) process(root ir.Expr) {
	stack := []frame{{expr: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := p.names[top.expr]; done {
			continue
		}
		if ir.IsLeaf(top.expr) || top.expr == nil {
			p.names[top.expr] = p.leaf(top.expr)
			continue
		}
		if top.expanded {
			p.names[top.expr] = p.node(top.expr)
			continue
		}
		stack = append(stack, frame{expr: top.expr, expanded: true})
		ops := ir.Operands(top.expr)
		for _, op := range slices.Backward(ops) {
			stack = append(stack, frame{expr: op})
		}
	}
}

func (p *printer) name(e ir.Expr) string {
	if name, ok := p.names[e]; ok {
		return name
	}
	return "?"
}

func (p *printer) leaf(e ir.Expr) string {
	switch eT := e.(type) {
	case nil:
		return "<nil>"
	case *ir.ParamExpr:
		return p.paramName(eT)
	default:
		return eT.String()
	}
}

func (p *printer) node(e ir.Expr) string {
	switch eT := e.(type) {
	case *ir.CallExpr:
		name := p.unames.Numbered("_X")
		args := make([]string, len(eT.Args))
		for i, arg := range eT.Args {
			args[i] = p.name(arg)
		}
		p.lines = append(p.lines, fmt.Sprintf("%s = %s(%s)", name, eT.Fn, strings.Join(args, ", ")))
		return name
	case *ir.ContractionExpr:
		var name string
		if eT.Name != "" {
			name = p.unames.Name(eT.Name)
		} else {
			name = p.unames.Numbered("_X")
		}
		p.lines = append(p.lines, name+p.contraction(eT))
		return name
	}
	return fmt.Sprintf("<%T>", e)
}

func (p *printer) contraction(c *ir.ContractionExpr) string {
	idx := indexNames(c)
	var b strings.Builder
	dims := make([]string, len(c.Shape().AxisLengths))
	for i, d := range c.Shape().AxisLengths {
		dims[i] = fmt.Sprint(d)
	}
	if c.Output != nil {
		b.WriteString("[")
		b.WriteString(indexList(idx, c.Output.Index))
		if len(dims) > 0 {
			b.WriteString(" : ")
			b.WriteString(strings.Join(dims, ", "))
		}
		b.WriteString("]")
	}
	terms := make([]string, len(c.Inputs))
	for i, in := range c.Inputs {
		if in == nil {
			terms[i] = "<nil>"
			continue
		}
		terms[i] = fmt.Sprintf("%s[%s]", p.name(in.Ref), indexList(idx, in.Index))
	}
	fmt.Fprintf(&b, " = %s(%s)", c.AggOp.Symbol(), combine(c.ComboOp, terms))
	for _, cons := range c.Constraints {
		fmt.Fprintf(&b, ", %s < %s", polyString(idx, cons.Lhs), cons.Rhs)
	}
	if c.Default != nil {
		fmt.Fprintf(&b, " default %s", p.name(c.Default))
	}
	return b.String()
}

func combine(op ir.CombinationOp, terms []string) string {
	switch op {
	case ir.ComboCond:
		if len(terms) == 3 {
			return fmt.Sprintf("%s == %s ? %s", terms[0], terms[1], terms[2])
		}
	case ir.ComboNone:
		return strings.Join(terms, ", ")
	}
	return strings.Join(terms, " "+op.Symbol()+" ")
}

func indexNames(c *ir.ContractionExpr) map[*ir.PolyIndex]string {
	unames := uname.New()
	names := make(map[*ir.PolyIndex]string)
	for _, idx := range c.Indices() {
		root := idx.Name
		if root == "" {
			root = "i"
		}
		names[idx] = unames.Name(root)
	}
	return names
}

func indexList(names map[*ir.PolyIndex]string, index []ir.PolyExpr) string {
	ss := make([]string, len(index))
	for i, p := range index {
		ss[i] = polyString(names, p)
	}
	return strings.Join(ss, ", ")
}

func polyString(names map[*ir.PolyIndex]string, p ir.PolyExpr) string {
	switch pT := p.(type) {
	case *ir.PolyIndex:
		return names[pT]
	case *ir.PolyOp:
		operand := func(x ir.PolyExpr) string {
			if _, ok := x.(*ir.PolyOp); ok {
				return "(" + polyString(names, x) + ")"
			}
			return polyString(names, x)
		}
		if pT.Op == ir.PolyNeg {
			return "-" + operand(pT.X)
		}
		return fmt.Sprintf("%s %s %s", operand(pT.X), pT.Op.Symbol(), operand(pT.Y))
	case nil:
		return "<nil>"
	}
	return p.String()
}
