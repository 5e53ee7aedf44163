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

// Package special builds the literal values appearing in gradients.
package special

import "github.com/gx-org/tilegrad/build/ir"

// Zero returns a new float literal equal to 0.
// It is the gradient of expressions on which the loss does not depend.
func Zero() *ir.FloatConst {
	return ir.NewFloat(0)
}

// One returns a new float literal equal to 1.
// It is the gradient of the loss with respect to itself.
func One() *ir.FloatConst {
	return ir.NewFloat(1)
}

// IntZero returns a new integer literal equal to 0.
// It is the gradient of non-differentiable operands.
func IntZero() *ir.IntConst {
	return ir.NewInt(0)
}

// IsZero returns true if the expression is a literal equal to 0.
func IsZero(e ir.Expr) bool {
	switch eT := e.(type) {
	case *ir.FloatConst:
		return eT.Value == 0
	case *ir.IntConst:
		return eT.Value == 0
	}
	return false
}

// IsOne returns true if the expression is a literal equal to 1.
func IsOne(e ir.Expr) bool {
	switch eT := e.(type) {
	case *ir.FloatConst:
		return eT.Value == 1
	case *ir.IntConst:
		return eT.Value == 1
	}
	return false
}
