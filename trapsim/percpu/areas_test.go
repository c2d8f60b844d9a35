// Copyright 2020 The gVisor Authors.
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

package percpu

import (
	"strings"
	"testing"

	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/sync"
)

func TestLayoutLookup(t *testing.T) {
	as, err := Layout(0x10000, 0x1000, 4)
	if err != nil {
		t.Fatalf("Layout(): %v", err)
	}
	if as.Len() != 4 {
		t.Errorf("Len() = %d, want 4", as.Len())
	}
	for _, tc := range []struct {
		addr hostarch.Addr
		cpu  int
		ok   bool
	}{
		{0xffff, 0, false},
		{0x10000, 0, true},
		{0x10fff, 0, true},
		{0x11000, 1, true},
		{0x12800, 2, true},
		{0x13fff, 3, true},
		{0x14000, 0, false},
	} {
		a, ok := as.Lookup(tc.addr)
		if ok != tc.ok {
			t.Errorf("Lookup(%v) ok = %t, want %t", tc.addr, ok, tc.ok)
			continue
		}
		if ok && a.CPU != tc.cpu {
			t.Errorf("Lookup(%v) = %v, want CPU %d", tc.addr, a, tc.cpu)
		}
	}
}

func TestAddOverlap(t *testing.T) {
	as := NewAreas()
	if err := as.Add(&Area{Base: 0x2000, Size: 0x1000, CPU: 0}); err != nil {
		t.Fatalf("Add(): %v", err)
	}
	for _, tc := range []struct {
		name string
		area *Area
		err  string
	}{
		{"below", &Area{Base: 0x1000, Size: 0x1000, CPU: 1}, ""},
		{"above", &Area{Base: 0x3000, Size: 0x1000, CPU: 2}, ""},
		{"same", &Area{Base: 0x2000, Size: 0x10, CPU: 3}, "overlaps"},
		{"straddle low", &Area{Base: 0xff0, Size: 0x20, CPU: 4}, "overlaps"},
		{"inside", &Area{Base: 0x2100, Size: 0x10, CPU: 5}, "overlaps"},
		{"empty", &Area{Base: 0x9000, CPU: 6}, "empty"},
		{"wrap", &Area{Base: ^hostarch.Addr(0xff), Size: 0x1000, CPU: 7}, "overflows"},
	} {
		err := as.Add(tc.area)
		if tc.err == "" {
			if err != nil {
				t.Errorf("%s: Add(%v): %v", tc.name, tc.area, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.err) {
			t.Errorf("%s: Add(%v) got error: %v, want error containing %q", tc.name, tc.area, err, tc.err)
		}
	}

	var cpus []int
	as.ForEach(func(a *Area) { cpus = append(cpus, a.CPU) })
	if len(cpus) != 3 || cpus[0] != 1 || cpus[1] != 0 || cpus[2] != 2 {
		t.Errorf("ForEach order = %v, want [1 0 2]", cpus)
	}
}

func TestNoteDepth(t *testing.T) {
	a := &Area{Base: 0x1000, Size: 0x1000}
	var wg sync.WaitGroup
	for d := 1; d <= 16; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			a.NoteDepth(d)
		}(d)
	}
	wg.Wait()
	a.NoteDepth(3)
	if got := a.MaxDepth.Load(); got != 16 {
		t.Errorf("MaxDepth = %d, want 16", got)
	}
}
