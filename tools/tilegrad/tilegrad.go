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

// Utility tilegrad prints the gradients of example tile programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/gx-org/tilegrad/base/logutil"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/build/ir/irstring"
	"github.com/gx-org/tilegrad/interp"
	"github.com/gx-org/tilegrad/stdlib/math/grad"
	"github.com/gx-org/tilegrad/tools/gxflag"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

var (
	names    = gxflag.StringList("examples", "comma separated list of examples to differentiate (all if empty)")
	eval     = flag.Bool("eval", false, "evaluate the loss and the gradients on deterministic inputs")
	logLevel = gxflag.LogLevel("log", slog.LevelWarn, "logging level: trace, debug, info, warn, or error")
)

func exit(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func exampleNames() []string {
	all := maps.Keys(examples)
	slices.Sort(all)
	return all
}

// inputs returns deterministic values for the parameters.
func inputs(params []*ir.ParamExpr) interp.Params {
	vals := make(interp.Params, len(params))
	for i, p := range params {
		t := interp.Zeros(p.Shape().AxisLengths...)
		for j := range t.Data {
			t.Data[j] = float64((j*7+i*3)%11)/4 - 1
		}
		vals[p] = t
	}
	return vals
}

func run(w io.Writer, logger *slog.Logger, selected []string, evaluate bool) error {
	if len(selected) == 0 {
		selected = exampleNames()
	}
	for _, name := range selected {
		build, ok := examples[name]
		if !ok {
			return errors.Errorf("unknown example %q: available examples are %v", name, exampleNames())
		}
		ex := build()
		wrts := make([]ir.Expr, len(ex.params))
		for i, p := range ex.params {
			wrts[i] = p
		}
		grads, err := grad.ComputeGradients(wrts, ex.loss, grad.WithLogger(logger))
		if err != nil {
			return errors.Wrapf(err, "example %s", name)
		}
		fmt.Fprintf(w, "== %s ==\n%s\n", name, irstring.String(ex.loss))
		for i, p := range ex.params {
			fmt.Fprintf(w, "-- d/d%s --\n%s\n", p.Name, irstring.String(grads[i]))
		}
		if !evaluate {
			continue
		}
		vals, err := interp.EvalAll(append([]ir.Expr{ex.loss}, grads...), inputs(ex.params))
		if err != nil {
			return errors.Wrapf(err, "example %s", name)
		}
		fmt.Fprintf(w, "loss = %s\n", vals[0])
		for i, p := range ex.params {
			fmt.Fprintf(w, "d/d%s = %s\n", p.Name, vals[i+1])
		}
	}
	return nil
}

func main() {
	flag.Parse()
	logger := logutil.New(os.Stderr, *logLevel)
	if err := run(os.Stdout, logger, *names, *eval); err != nil {
		exit("%+v", err)
	}
}
