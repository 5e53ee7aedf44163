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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gx-org/tilegrad/base/logutil"
)

func TestRunAll(t *testing.T) {
	var buf bytes.Buffer
	if err := run(&buf, logutil.Discard(), nil, true); err != nil {
		t.Fatalf("%+v", err)
	}
	out := buf.String()
	for _, name := range exampleNames() {
		if !strings.Contains(out, "== "+name+" ==") {
			t.Errorf("output does not contain example %s:\n%s", name, out)
		}
	}
	for _, want := range []string{"-- d/dA --", "d/dX = ", "pool[i : 3] = >(X[(2 * i) + j]), j < 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRunUnknownExample(t *testing.T) {
	var buf bytes.Buffer
	err := run(&buf, logutil.Discard(), []string{"conv3d"}, false)
	if err == nil || !strings.Contains(err.Error(), "unknown example") {
		t.Errorf("incorrect error: got %v but want an unknown example error", err)
	}
}
