// Copyright 2018 The gVisor Authors.
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

package metric

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// reset clears all global state in the metric package.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	allMetrics = make(map[string]*Uint64Metric)
}

func TestInitialize(t *testing.T) {
	defer reset()
	reset()

	if _, err := NewUint64Metric("/foo", "a counter"); err != nil {
		t.Fatalf("NewUint64Metric got err %v want nil", err)
	}
	if _, err := NewUint64Metric("/foo", "a counter"); err != ErrNameInUse {
		t.Errorf("NewUint64Metric on duplicate name got err %v want %v", err, ErrNameInUse)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize(): %s", err)
	}
	if err := Initialize(); err == nil {
		t.Errorf("second Initialize() got nil error")
	}
	if _, err := NewUint64Metric("/bar", "too late"); err != ErrInitializationDone {
		t.Errorf("NewUint64Metric after Initialize got err %v want %v", err, ErrInitializationDone)
	}
}

func TestBadFields(t *testing.T) {
	defer reset()
	reset()

	if _, err := NewUint64Metric("/empty", "", NewField("path", nil)); err != ErrFieldHasNoAllowedValues {
		t.Errorf("NewUint64Metric with empty field got err %v want %v", err, ErrFieldHasNoAllowedValues)
	}
}

func TestUint64MetricWithFields(t *testing.T) {
	defer reset()
	reset()

	m := MustCreateNewUint64Metric("/traps", "traps taken",
		NewField("path", []string{"fast", "full"}),
		NewField("level", []string{"el0", "el1"}))
	m.Increment("fast", "el0")
	m.Increment("fast", "el0")
	m.IncrementBy(5, "full", "el1")

	if got := m.Value("fast", "el0"); got != 2 {
		t.Errorf("Value(fast, el0) = %d, want 2", got)
	}
	if got := m.Value("fast", "el1"); got != 0 {
		t.Errorf("Value(fast, el1) = %d, want 0", got)
	}

	want := []Value{
		{Name: "/traps", Fields: []string{"fast", "el0"}, Value: 2},
		{Name: "/traps", Fields: []string{"fast", "el1"}, Value: 0},
		{Name: "/traps", Fields: []string{"full", "el0"}, Value: 0},
		{Name: "/traps", Fields: []string{"full", "el1"}, Value: 5},
	}
	if diff := cmp.Diff(want, Values()); diff != "" {
		t.Errorf("Values() (-want +got):\n%s", diff)
	}
}

func TestValuesOrder(t *testing.T) {
	defer reset()
	reset()

	b := MustCreateNewUint64Metric("/b", "")
	a := MustCreateNewUint64Metric("/a", "")
	a.Increment()
	b.IncrementBy(3)

	want := []Value{
		{Name: "/a", Value: 1},
		{Name: "/b", Value: 3},
	}
	if diff := cmp.Diff(want, Values()); diff != "" {
		t.Errorf("Values() (-want +got):\n%s", diff)
	}
	if got := want[1].String(); got != "/b: 3" {
		t.Errorf("String() = %q", got)
	}
}

func TestDisallowedFieldPanics(t *testing.T) {
	defer reset()
	reset()

	m := MustCreateNewUint64Metric("/x", "", NewField("path", []string{"fast"}))
	defer func() {
		if recover() == nil {
			t.Errorf("Increment with a disallowed value did not panic")
		}
	}()
	m.Increment("slow")
}
