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

// Package linux contains the AArch64 register ABI shared by the ring0 model
// and its tools.
package linux

const (
	// PSR bits
	PSR_MODE_EL0t = 0x00000000
	PSR_MODE_EL1t = 0x00000004
	PSR_MODE_EL1h = 0x00000005
	PSR_MODE_MASK = 0x0000000f

	// AArch64 SPSR bits
	PSR_F_BIT = 0x00000040
	PSR_I_BIT = 0x00000080
	PSR_A_BIT = 0x00000100
	PSR_D_BIT = 0x00000200
)

const (
	// NumGPRs is the number of general-purpose registers, x0 through x30.
	NumGPRs = 31

	// FramePointer is the index of the frame pointer register, x29.
	FramePointer = 29

	// LinkRegister is the index of the link register, x30.
	LinkRegister = 30
)

// PtraceRegs is the set of CPU registers exposed by ptrace. Source:
// syscall.PtraceRegs.
type PtraceRegs struct {
	Regs   [NumGPRs]uint64
	Sp     uint64
	Pc     uint64
	Pstate uint64
}

// InstructionPointer returns the address of the next instruction to be
// executed.
func (p *PtraceRegs) InstructionPointer() uint64 {
	return p.Pc
}

// StackPointer returns the address of the Stack pointer.
func (p *PtraceRegs) StackPointer() uint64 {
	return p.Sp
}

// SetStackPointer sets the stack pointer to the specified value.
func (p *PtraceRegs) SetStackPointer(sp uint64) {
	p.Sp = sp
}

// ReturnValue returns x0, which carries a syscall's result.
func (p *PtraceRegs) ReturnValue() uint64 {
	return p.Regs[0]
}

// SetReturnValue sets x0.
func (p *PtraceRegs) SetReturnValue(v uint64) {
	p.Regs[0] = v
}
