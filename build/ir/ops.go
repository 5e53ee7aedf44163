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

import "fmt"

// AggregationOp specifies how the terms of a contraction are accumulated
// into an output element.
type AggregationOp int

// Aggregation operations.
const (
	AggNone AggregationOp = iota
	AggSum
	AggAssign
	AggMin
	AggMax
	AggProd
)

var aggSymbols = map[AggregationOp]string{
	AggSum:    "+",
	AggAssign: "=",
	AggMin:    "<",
	AggMax:    ">",
	AggProd:   "*",
}

var aggNames = map[AggregationOp]string{
	AggSum:    "SUM",
	AggAssign: "ASSIGN",
	AggMin:    "MIN",
	AggMax:    "MAX",
	AggProd:   "PROD",
}

// Symbol used to print the operation in a contraction.
func (op AggregationOp) Symbol() string {
	if s, ok := aggSymbols[op]; ok {
		return s
	}
	return "?"
}

func (op AggregationOp) String() string {
	if s, ok := aggNames[op]; ok {
		return s
	}
	return fmt.Sprintf("AggregationOp(%d)", int(op))
}

// CombinationOp specifies how the inputs of a contraction are combined
// for a given tuple of indices.
type CombinationOp int

// Combination operations.
const (
	// ComboNone passes a single input through. Only single input
	// contractions can be evaluated or differentiated.
	ComboNone CombinationOp = iota
	ComboMultiply
	ComboPlus
	// ComboCond computes (a == b) ? c : 0.
	ComboCond
	// ComboEq computes a == b.
	ComboEq
)

var comboSymbols = map[CombinationOp]string{
	ComboNone:     "",
	ComboMultiply: "*",
	ComboPlus:     "+",
	ComboCond:     "?",
	ComboEq:       "==",
}

var comboNames = map[CombinationOp]string{
	ComboNone:     "NONE",
	ComboMultiply: "MULTIPLY",
	ComboPlus:     "PLUS",
	ComboCond:     "COND",
	ComboEq:       "EQ",
}

// Symbol used to print the operation in a contraction.
func (op CombinationOp) Symbol() string {
	if s, ok := comboSymbols[op]; ok {
		return s
	}
	return "?"
}

func (op CombinationOp) String() string {
	if s, ok := comboNames[op]; ok {
		return s
	}
	return fmt.Sprintf("CombinationOp(%d)", int(op))
}

// checkArity returns an error if n inputs cannot be combined by op.
func (op CombinationOp) checkArity(n int) error {
	switch op {
	case ComboNone:
		if n < 1 {
			return fmt.Errorf("%s combination requires at least 1 input but got %d", op, n)
		}
	case ComboMultiply, ComboPlus:
		if n < 2 {
			return fmt.Errorf("%s combination requires at least 2 inputs but got %d", op, n)
		}
	case ComboEq:
		if n != 2 {
			return fmt.Errorf("%s combination requires 2 inputs but got %d", op, n)
		}
	case ComboCond:
		if n != 3 {
			return fmt.Errorf("%s combination requires 3 inputs but got %d", op, n)
		}
	default:
		return fmt.Errorf("unknown combination %s", op)
	}
	return nil
}
