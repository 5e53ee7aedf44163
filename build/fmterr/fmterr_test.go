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

package fmterr_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gx-org/tilegrad/build/fmterr"
)

type node string

func (n node) String() string { return string(n) }

func TestKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
		want string
	}{
		{
			err:  fmterr.Errorf(fmterr.ErrUnsupportedOperation, node("_X0"), "PROD aggregation does not support differentiation"),
			kind: fmterr.ErrUnsupportedOperation,
			want: "unsupported operation: _X0: PROD aggregation does not support differentiation",
		},
		{
			err:  fmterr.Errorf(fmterr.ErrUnregisteredOperation, nil, "no derivative for %q", "foo"),
			kind: fmterr.ErrUnregisteredOperation,
			want: `unregistered operation: no derivative for "foo"`,
		},
		{
			err:  fmt.Errorf("gradient 2: %w", fmterr.Errorf(fmterr.ErrNotImplemented, node("t"), "dynamic index")),
			kind: fmterr.ErrNotImplemented,
			want: "gradient 2: not implemented: t: dynamic index",
		},
		{
			err:  errors.New("plain"),
			kind: nil,
			want: "plain",
		},
	}
	for i, test := range tests {
		if got := fmterr.KindOf(test.err); got != test.kind {
			t.Errorf("test %d: got kind %v but want %v", i, got, test.kind)
		}
		if got := test.err.Error(); got != test.want {
			t.Errorf("test %d: got message %q but want %q", i, got, test.want)
		}
	}
}

func TestInternal(t *testing.T) {
	err := fmterr.Internalf(node("add"), "invalid operation in gradient computation")
	if !errors.Is(err, fmterr.ErrInternalInconsistency) {
		t.Errorf("%v is not an internal inconsistency", err)
	}
	if !strings.Contains(err.Error(), "This is a bug") {
		t.Errorf("internal error %q does not ask for a bug report", err.Error())
	}
}

func TestStackTrace(t *testing.T) {
	err := fmterr.Errorf(fmterr.ErrInvalidExpr, node("x"), "nil argument")
	if fmterr.StackTrace(err) == nil {
		t.Fatalf("error has no stack trace")
	}
	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "Error generated at:") {
		t.Errorf("verbose format %q does not contain the stack trace", verbose)
	}
	if short := fmt.Sprintf("%v", err); short != err.Error() {
		t.Errorf("got %q but want %q", short, err.Error())
	}
}

func TestPrefixWith(t *testing.T) {
	base := fmterr.Errorf(fmterr.ErrInvalidExpr, nil, "bad")
	err := fmterr.PrefixWith("target %d: ", 3)(base)
	if got, want := err.Error(), "target 3: invalid expression: bad"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	if !errors.Is(err, fmterr.ErrInvalidExpr) {
		t.Errorf("prefixed error lost its kind")
	}
}
