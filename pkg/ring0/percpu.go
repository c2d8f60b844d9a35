// Copyright 2019 The gVisor Authors.
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

package ring0

import (
	"fmt"

	"gvisor.dev/trapframe/pkg/atomicbitops"
)

// OffsetSlot is a per-CPU register holding one word. On AArch64 this is
// TPIDR_EL1, which is neither saved nor restored by exception entry and
// return.
type OffsetSlot interface {
	// Load returns the value of the slot.
	Load() uintptr

	// Store sets the value of the slot.
	Store(v uintptr)
}

// offsetCell is an in-memory OffsetSlot.
type offsetCell struct {
	v atomicbitops.Uint64
}

// NewOffsetCell returns an in-memory OffsetSlot holding zero.
func NewOffsetCell() OffsetSlot {
	return &offsetCell{}
}

// Load implements OffsetSlot.Load.
func (o *offsetCell) Load() uintptr {
	return uintptr(o.v.Load())
}

// Store implements OffsetSlot.Store.
func (o *offsetCell) Store(v uintptr) {
	o.v.Store(uint64(v))
}

// ThisCPUOffset returns the offset of this CPU's private data area. It reads
// zero until SetThisCPUOffset has run.
//
//go:nosplit
func (c *CPU) ThisCPUOffset() uintptr {
	return c.slot.Load()
}

// SetThisCPUOffset records the offset of this CPU's private data area. It is
// called once per CPU during bring-up, before any exception can be taken.
// Calling it again panics.
func (c *CPU) SetThisCPUOffset(offset uintptr) {
	if c.offsetSet.Swap(true) {
		panic(fmt.Sprintf("ring0: CPU %d offset already set to %#x", c.id, c.slot.Load()))
	}
	c.slot.Store(offset)
}
