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

// Package percpu tracks the private data area of each simulated CPU.
//
// A CPU's offset slot holds the base of its area. Exception handlers map the
// slot value back to the area with Lookup, the same way kernel code adds
// the per-CPU offset to a per-CPU variable's address.
package percpu

import (
	"fmt"

	"github.com/google/btree"
	"gvisor.dev/trapframe/pkg/atomicbitops"
	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/sync"
)

// Area is the private data area of one CPU.
type Area struct {
	// Base is the first address of the area, and the value stored in the
	// CPU's offset slot.
	Base hostarch.Addr

	// Size is the size of the area in bytes.
	Size uint64

	// CPU is the owning CPU.
	CPU int

	// Syscalls counts system calls handled on the CPU.
	Syscalls atomicbitops.Uint64

	// Exceptions counts other exceptions handled on the CPU.
	Exceptions atomicbitops.Uint64

	// MaxDepth is the deepest nesting observed on the CPU.
	MaxDepth atomicbitops.Uint64
}

// End returns the address just past the area.
func (a *Area) End() hostarch.Addr {
	return a.Base + hostarch.Addr(a.Size)
}

// Contains returns true if addr is inside the area.
func (a *Area) Contains(addr hostarch.Addr) bool {
	return addr >= a.Base && addr < a.End()
}

// NoteDepth records a nesting depth seen on the CPU.
func (a *Area) NoteDepth(depth int) {
	for {
		cur := a.MaxDepth.Load()
		if uint64(depth) <= cur {
			return
		}
		if a.MaxDepth.CompareAndSwap(cur, uint64(depth)) {
			return
		}
	}
}

// String implements fmt.Stringer.String.
func (a *Area) String() string {
	return fmt.Sprintf("cpu%d[%v, %v)", a.CPU, a.Base, a.End())
}

func byBase(a, b *Area) bool {
	return a.Base < b.Base
}

// Areas is a set of non-overlapping areas ordered by address.
type Areas struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*Area]
}

// btreeDegree is the degree of the area tree.
const btreeDegree = 8

// NewAreas returns an empty set.
func NewAreas() *Areas {
	return &Areas{tree: btree.NewG(btreeDegree, byBase)}
}

// Layout returns n areas of size bytes each, placed back to back from
// base. Area i belongs to CPU i.
func Layout(base hostarch.Addr, size uint64, n int) (*Areas, error) {
	if size == 0 {
		return nil, fmt.Errorf("per-CPU area size must be positive")
	}
	as := NewAreas()
	for i := 0; i < n; i++ {
		start, ok := base.AddLength(uint64(i) * size)
		if !ok {
			return nil, fmt.Errorf("per-CPU area %d overflows the address space", i)
		}
		if err := as.Add(&Area{Base: start, Size: size, CPU: i}); err != nil {
			return nil, err
		}
	}
	return as, nil
}

// Add inserts an area. It fails if the area is empty, wraps, or overlaps an
// existing one.
func (as *Areas) Add(a *Area) error {
	if a.Size == 0 {
		return fmt.Errorf("area %v is empty", a)
	}
	if _, ok := a.Base.AddLength(a.Size); !ok {
		return fmt.Errorf("area at %v of size %#x overflows", a.Base, a.Size)
	}

	as.mu.Lock()
	defer as.mu.Unlock()
	var conflict *Area
	as.tree.DescendLessOrEqual(a, func(prev *Area) bool {
		if prev.End() > a.Base {
			conflict = prev
		}
		return false
	})
	if conflict == nil {
		as.tree.AscendGreaterOrEqual(a, func(next *Area) bool {
			if next.Base < a.End() {
				conflict = next
			}
			return false
		})
	}
	if conflict != nil {
		return fmt.Errorf("area %v overlaps %v", a, conflict)
	}
	as.tree.ReplaceOrInsert(a)
	return nil
}

// Lookup returns the area containing addr.
func (as *Areas) Lookup(addr hostarch.Addr) (*Area, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	var found *Area
	as.tree.DescendLessOrEqual(&Area{Base: addr}, func(a *Area) bool {
		if a.Contains(addr) {
			found = a
		}
		return false
	})
	return found, found != nil
}

// Len returns the number of areas.
func (as *Areas) Len() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.tree.Len()
}

// ForEach calls fn for each area in address order.
func (as *Areas) ForEach(fn func(a *Area)) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	as.tree.Ascend(func(a *Area) bool {
		fn(a)
		return true
	})
}
