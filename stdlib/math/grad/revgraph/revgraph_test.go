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

package revgraph_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/tilegrad/build/fmterr"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irhelper"
	"github.com/gx-org/tilegrad/stdlib/math/grad/revgraph"
)

func usesToString(uses []revgraph.Use) []string {
	ss := make([]string, len(uses))
	for i, use := range uses {
		ss[i] = use.String()
	}
	return ss
}

func TestUses(t *testing.T) {
	x := irhelper.Param("x", 3)
	y := irhelper.Call("exp", x)
	z := irhelper.Call("mul", y, x)
	unused := irhelper.Param("unused")
	g, err := revgraph.Build(z)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		expr ir.Expr
		want []string
	}{
		{expr: z, want: []string{}},
		{expr: y, want: []string{"mul(exp(...), x)#0"}},
		{expr: x, want: []string{"mul(exp(...), x)#1", "exp(x)#0"}},
		{expr: unused, want: []string{}},
	}
	for i, test := range tests {
		got := usesToString(g.Uses(test.expr))
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: incorrect uses for %s: got %v but want %v", i, test.expr, got, test.want)
		}
	}
	nodes := g.Nodes()
	if len(nodes) != 3 || nodes[0] != z || nodes[1] != y || nodes[2] != x {
		t.Errorf("incorrect nodes: got %v", nodes)
	}
	if g.Contains(unused) {
		t.Errorf("graph contains an unreachable expression")
	}
	if g.Root() != z {
		t.Errorf("got root %s but want %s", g.Root(), z)
	}
	if got, want := g.Stats(), "call=2 param=1"; got != want {
		t.Errorf("got stats %q but want %q", got, want)
	}
}

func TestMultipleUsesSameConsumer(t *testing.T) {
	x := irhelper.Param("x")
	y := irhelper.Call("add", x, x)
	g, err := revgraph.Build(y)
	if err != nil {
		t.Fatal(err)
	}
	uses := g.Uses(x)
	if len(uses) != 2 {
		t.Fatalf("got %d uses but want 2", len(uses))
	}
	for i, use := range uses {
		if use.User != y || use.Index != i {
			t.Errorf("use %d: got %s but want %s#%d", i, use, y, i)
		}
	}
}

func TestContractionDefault(t *testing.T) {
	a := irhelper.Param("A", 4)
	d := irhelper.Param("D", 4)
	i := ir.NewIndex("i")
	c := irhelper.Contraction(ir.AggMax, ir.ComboNone, ir.OutSpec(irhelper.Indices(i), ir.Ints(4)), ir.Spec(a, i))
	c.Default = d
	g, err := revgraph.Build(c)
	if err != nil {
		t.Fatal(err)
	}
	if uses := g.Uses(a); len(uses) != 1 || uses[0].Index != 0 {
		t.Errorf("incorrect uses of the input: %v", uses)
	}
	if uses := g.Uses(d); len(uses) != 1 || uses[0].Index != 1 || uses[0].User != c {
		t.Errorf("incorrect uses of the default: %v", uses)
	}
}

func TestDeepGraph(t *testing.T) {
	x := irhelper.Param("x")
	var e ir.Expr = x
	const depth = 100000
	for range depth {
		e = irhelper.Call("neg", e)
	}
	g, err := revgraph.Build(e)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(g.Nodes()); got != depth+1 {
		t.Errorf("got %d nodes but want %d", got, depth+1)
	}
}

func TestNilOperand(t *testing.T) {
	call := &ir.CallExpr{Fn: "exp", Args: []ir.Expr{nil}}
	if _, err := revgraph.Build(call); !errors.Is(err, fmterr.ErrInvalidExpr) {
		t.Errorf("got error %v but want an invalid expression error", err)
	}
}
