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

// Package testgrad checks symbolic gradients against numerical ones.
package testgrad

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gx-org/tilegrad/build/ir"
	"github.com/gx-org/tilegrad/interp"
	"github.com/gx-org/tilegrad/stdlib/math/grad"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultEps is the step used to compute finite differences.
	DefaultEps = 1e-6
	// DefaultTol is the relative tolerance when comparing gradients.
	DefaultTol = 1e-4
)

// Numeric returns the derivative of the sum of all the elements of a loss
// with respect to a parameter using central finite differences.
func Numeric(loss ir.Expr, param *ir.ParamExpr, params interp.Params, eps float64) (*interp.Tensor, error) {
	x, ok := params[param]
	if !ok {
		return nil, errors.Errorf("no value for parameter %s", param)
	}
	perturbed := make(interp.Params, len(params))
	for p, v := range params {
		perturbed[p] = v
	}
	out := interp.Zeros(x.Dims...)
	for i := range x.Data {
		var fs [2]float64
		for j, delta := range []float64{eps, -eps} {
			xi := x.Clone()
			xi.Data[i] += delta
			perturbed[param] = xi
			val, err := interp.Eval(loss, perturbed)
			if err != nil {
				return nil, err
			}
			t, ok := val.(*interp.Tensor)
			if !ok {
				return nil, errors.Errorf("loss %s evaluates to %T", loss, val)
			}
			fs[j] = t.Sum()
		}
		out.Data[i] = (fs[0] - fs[1]) / (2 * eps)
	}
	return out, nil
}

// Case computes the gradients of a loss and compares them to
// finite differences.
type Case struct {
	// Loss to differentiate.
	Loss ir.Expr

	// Params are the values of the parameters of the loss.
	Params interp.Params

	// Wrt lists the parameters to differentiate with respect to.
	// If empty, all the parameters are used, sorted by name.
	Wrt []*ir.ParamExpr

	// Opts are passed to the gradient computation.
	Opts []grad.Option

	// Eps is the finite differences step. DefaultEps is used if 0.
	Eps float64

	// Tol is the relative tolerance. DefaultTol is used if 0.
	Tol float64

	// Err is the substring expected if the gradient computation fails.
	Err string
}

func (tt Case) wrts() []*ir.ParamExpr {
	if len(tt.Wrt) > 0 {
		return tt.Wrt
	}
	var wrts []*ir.ParamExpr
	for p := range tt.Params {
		wrts = append(wrts, p)
	}
	slices.SortFunc(wrts, func(a, b *ir.ParamExpr) int {
		return strings.Compare(a.Name, b.Name)
	})
	return wrts
}

// Run computes the symbolic gradients, evaluates them, and compares
// the result with numerical gradients.
func (tt Case) Run() error {
	eps, tol := tt.Eps, tt.Tol
	if eps == 0 {
		eps = DefaultEps
	}
	if tol == 0 {
		tol = DefaultTol
	}
	wrts := tt.wrts()
	exprs := make([]ir.Expr, len(wrts))
	for i, wrt := range wrts {
		exprs[i] = wrt
	}
	grads, err := grad.ComputeGradients(exprs, tt.Loss, tt.Opts...)
	if err != nil {
		return checkError(tt.Err, err)
	}
	if tt.Err != "" {
		return errors.Errorf("expected an error matching %q but got no error", tt.Err)
	}
	vals, err := interp.EvalAll(grads, tt.Params)
	if err != nil {
		return errors.Errorf("cannot evaluate gradients: %+v", err)
	}
	for i, wrt := range wrts {
		got, err := expand(vals[i], wrt)
		if err != nil {
			return err
		}
		want, err := Numeric(tt.Loss, wrt, tt.Params, eps)
		if err != nil {
			return err
		}
		if diff := cmp.Diff(got.Data, want.Data, cmpopts.EquateApprox(tol, tol)); diff != "" {
			return errors.Errorf("incorrect gradient with respect to %s:\ngot:  %s\nwant: %s\ndiff:\n%s", wrt, got, want, diff)
		}
	}
	return nil
}

// expand broadcasts a scalar gradient to the dimensions of its parameter.
func expand(val interp.Value, wrt *ir.ParamExpr) (*interp.Tensor, error) {
	t, ok := val.(*interp.Tensor)
	if !ok {
		return nil, errors.Errorf("gradient with respect to %s evaluates to %T", wrt, val)
	}
	dims := wrt.Shape().AxisLengths
	if slices.Equal(t.Dims, dims) {
		return t, nil
	}
	if len(t.Data) != 1 {
		return nil, errors.Errorf("gradient with respect to %s has dimensions %v but want %v", wrt, t.Dims, dims)
	}
	out := interp.Zeros(dims...)
	floats.AddConst(t.Data[0], out.Data)
	return out, nil
}

func checkError(want string, err error) error {
	if want == "" {
		return err
	}
	if !strings.Contains(err.Error(), want) {
		return errors.Errorf("got error %q but want an error matching %q", err.Error(), want)
	}
	return nil
}

// Check compares the symbolic gradients of a loss with respect to all
// its parameters with numerical gradients.
func Check(t testing.TB, loss ir.Expr, params interp.Params, tol float64) {
	t.Helper()
	if err := (Case{Loss: loss, Params: params, Tol: tol}).Run(); err != nil {
		t.Error(err)
	}
}
