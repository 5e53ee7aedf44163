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

package fmterr

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

type (
	// ErrorAt is an error attached to an expression.
	ErrorAt interface {
		error
		// Kind of the error.
		Kind() error
		// Node at which the error occurred. Can be nil.
		Node() fmt.Stringer
		// Err returns the error without its kind and node.
		Err() error
	}

	errorAt struct {
		kind error
		node fmt.Stringer
		err  error
	}
)

var _ ErrorAt = errorAt{}

// At attaches a kind and an expression to an existing error.
func At(kind error, node fmt.Stringer, err error) error {
	return errorAt{kind: kind, node: node, err: err}
}

// Errorf returns a formatted error of a given kind for an expression.
// The error records the stack trace at which it has been created.
func Errorf(kind error, node fmt.Stringer, format string, a ...any) error {
	return At(kind, node, errors.Errorf(format, a...))
}

// Internalf returns an internal inconsistency error.
func Internalf(node fmt.Stringer, format string, a ...any) error {
	return Errorf(ErrInternalInconsistency, node, format, a...)
}

// Error returns a string description of the error.
func (err errorAt) Error() (s string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s = fmt.Sprintf("recovered from panic when building error message: %T:\n%v", err.err, string(debug.Stack()))
	}()
	msg := err.err.Error()
	if err.node != nil {
		msg = err.node.String() + ": " + msg
	}
	if err.kind == ErrInternalInconsistency {
		return "tilegrad internal error. This is a bug in tilegrad. Please report it. Error:\n" + err.kind.Error() + ": " + msg
	}
	return err.kind.Error() + ": " + msg
}

// Unwrap the error into its kind and its cause.
func (err errorAt) Unwrap() []error {
	return []error{err.kind, err.err}
}

// Format writes the error into the state of the formatter.
func (err errorAt) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

func (err errorAt) Kind() error {
	return err.kind
}

func (err errorAt) Node() fmt.Stringer {
	return err.node
}

func (err errorAt) Err() error {
	return err.err
}
