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

// Package revgraph computes the reverse graph of a tile program:
// for every expression, the list of its consumers.
package revgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/tilegrad/base/ordered"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"golang.org/x/exp/maps"
)

// Use records that an expression is an operand of User at position Index.
// The default of a contraction is at the position following its last input.
type Use struct {
	User  ir.Expr
	Index int
}

func (u Use) String() string {
	return fmt.Sprintf("%s#%d", u.User, u.Index)
}

// Graph maps every expression reachable from a root to its uses.
// A graph is not modified once built.
type Graph struct {
	root ir.Expr
	uses *ordered.Map[ir.Expr, []Use]
}

// Build the reverse graph of all the expressions reachable from root.
// Every expression is expanded once, regardless of its number of consumers.
func Build(root ir.Expr) (*Graph, error) {
	if root == nil {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, nil, "cannot build the reverse graph of a nil expression")
	}
	g := &Graph{
		root: root,
		uses: ordered.NewMap[ir.Expr, []Use](),
	}
	g.uses.Store(root, nil)
	seen := make(map[ir.Expr]bool)
	stack := []ir.Expr{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[e] {
			continue
		}
		seen[e] = true
		var err error
		switch eT := e.(type) {
		case *ir.CallExpr:
			for i, arg := range eT.Args {
				if stack, err = g.push(stack, eT, arg, i); err != nil {
					return nil, err
				}
			}
		case *ir.ContractionExpr:
			for i, in := range eT.Inputs {
				if in == nil {
					return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, eT, "input %d is nil", i)
				}
				if stack, err = g.push(stack, eT, in.Ref, i); err != nil {
					return nil, err
				}
			}
			if eT.Default != nil {
				if stack, err = g.push(stack, eT, eT.Default, len(eT.Inputs)); err != nil {
					return nil, err
				}
			}
		case *ir.DimExprExpr, *ir.FloatConst, *ir.IntConst, *ir.ParamExpr:
		default:
			return nil, fmterr.Internalf(nil, "expression type %T not supported in reverse graph", e)
		}
	}
	return g, nil
}

func (g *Graph) push(stack []ir.Expr, user, used ir.Expr, idx int) ([]ir.Expr, error) {
	if used == nil {
		return nil, fmterr.Errorf(fmterr.ErrInvalidExpr, user, "operand %d is nil", idx)
	}
	g.uses.Update(used, func(uses []Use, _ bool) []Use {
		return append(uses, Use{User: user, Index: idx})
	})
	return append(stack, used), nil
}

// Root returns the expression from which the graph has been built.
func (g *Graph) Root() ir.Expr {
	return g.root
}

// Uses returns the list of consumers of an expression.
// The list is empty for the root and for expressions not reachable from the root.
func (g *Graph) Uses(e ir.Expr) []Use {
	uses, _ := g.uses.Load(e)
	return uses
}

// Contains returns true if the expression is reachable from the root.
func (g *Graph) Contains(e ir.Expr) bool {
	return g.uses.Has(e)
}

// Nodes returns all the expressions reachable from the root,
// the root first, then in the order in which they have been discovered.
func (g *Graph) Nodes() []ir.Expr {
	return slices.Collect(g.uses.Keys())
}

// Stats returns a summary of the graph: the number of expressions per type.
func (g *Graph) Stats() string {
	counts := make(map[string]int)
	for e := range g.uses.Keys() {
		counts[kindName(e)]++
	}
	kinds := maps.Keys(counts)
	slices.Sort(kinds)
	var ss []string
	for _, kind := range kinds {
		ss = append(ss, fmt.Sprintf("%s=%d", kind, counts[kind]))
	}
	return strings.Join(ss, " ")
}

func kindName(e ir.Expr) string {
	switch e.(type) {
	case *ir.CallExpr:
		return "call"
	case *ir.ContractionExpr:
		return "contraction"
	case *ir.ParamExpr:
		return "param"
	case *ir.FloatConst, *ir.IntConst:
		return "const"
	case *ir.DimExprExpr:
		return "dim"
	}
	return "unknown"
}
