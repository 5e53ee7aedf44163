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

// Package fmterr provides the errors reported while differentiating
// expressions and helpers to format them.
package fmterr

import (
	"errors"
	"fmt"
)

// Kinds of errors. Every error returned while computing a gradient
// matches exactly one of these with errors.Is.
var (
	// ErrUnsupportedOperation is returned when an operation has no
	// differentiation rule.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrNotImplemented is returned for known operations with a rule
	// that has not been implemented for a given configuration.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnregisteredOperation is returned when a call has no derivative in
	// the registry.
	ErrUnregisteredOperation = errors.New("unregistered operation")
	// ErrInternalInconsistency is returned when an invariant of the
	// differentiator is broken.
	ErrInternalInconsistency = errors.New("internal inconsistency")
	// ErrInvalidExpr is returned for malformed input expressions.
	ErrInvalidExpr = errors.New("invalid expression")
)

var kinds = []error{
	ErrUnsupportedOperation,
	ErrNotImplemented,
	ErrUnregisteredOperation,
	ErrInternalInconsistency,
	ErrInvalidExpr,
}

// KindOf returns the kind of an error or nil if the error has no kind.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}
