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

//go:build arm64
// +build arm64

package ring0

// tpidrSlot is the TPIDR_EL1 register of the executing CPU.
type tpidrSlot struct{}

var _ OffsetSlot = tpidrSlot{}

// TPIDR returns the hardware offset slot. It is only usable at EL1; at EL0
// the MRS and MSR instructions are undefined and trap.
func TPIDR() OffsetSlot {
	return tpidrSlot{}
}

// Load implements OffsetSlot.Load.
//
//go:nosplit
func (tpidrSlot) Load() uintptr {
	return getThisCPUOffset()
}

// Store implements OffsetSlot.Store.
//
//go:nosplit
func (tpidrSlot) Store(v uintptr) {
	setThisCPUOffset(v)
}

// getThisCPUOffset reads TPIDR_EL1.
func getThisCPUOffset() uintptr

// setThisCPUOffset writes TPIDR_EL1.
func setThisCPUOffset(value uintptr)
