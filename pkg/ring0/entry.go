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

	"gvisor.dev/trapframe/pkg/hostarch"
)

// regValue returns the live value of register n, or zero for the pad.
func (c *CPU) regValue(n int) uint64 {
	if n == noReg {
		return 0
	}
	return c.registers.Regs[n]
}

func (c *CPU) setRegValue(n int, v uint64) {
	if n == noReg {
		return
	}
	c.registers.Regs[n] = v
}

// SaveRegs pushes x0-x30 onto the current stack as sixteen pairs, the
// x29/x30 pair first and the x0/pad pair last. SP ends FrameSize bytes
// lower and points at the saved x0.
//
// Only SP changes; every general-purpose register keeps its value.
func (c *CPU) SaveRegs() {
	r := &c.registers
	for i := len(framePairs) - 1; i >= 0; i-- {
		p := framePairs[i]
		sp := hostarch.Addr(r.Sp) - PairSize
		c.stack.Store(sp, c.regValue(p.lo))
		c.stack.Store(sp+hostarch.WordSize, c.regValue(p.hi))
		r.Sp = uint64(sp)
	}
	c.depth++
}

// RestoreSyscallRegs pops the frame on top of the stack without reloading
// x0, which carries the system call result. x1-x30 get their saved values
// and SP returns to its value before SaveRegs.
func (c *CPU) RestoreSyscallRegs() {
	c.restore(false)
}

// RestoreExceptionRegs pops the frame on top of the stack, reloading every
// register including x0. SP returns to its value before SaveRegs.
func (c *CPU) RestoreExceptionRegs() {
	c.restore(true)
}

func (c *CPU) restore(withX0 bool) {
	if c.depth == 0 {
		panic(fmt.Sprintf("ring0: CPU %d restoring with no saved frame", c.id))
	}
	r := &c.registers
	for i, p := range framePairs {
		sp := hostarch.Addr(r.Sp)
		if i > 0 || withX0 {
			c.setRegValue(p.lo, c.stack.Load(sp))
			c.setRegValue(p.hi, c.stack.Load(sp+hostarch.WordSize))
		}
		r.Sp = uint64(sp + PairSize)
	}
	c.depth--
}

// AllocStack reserves n bytes below SP. n should be a multiple of
// hostarch.StackAlignment.
func (c *CPU) AllocStack(n uint64) {
	c.registers.Sp -= n
}

// DeallocStack releases n bytes previously reserved by AllocStack.
func (c *CPU) DeallocStack(n uint64) {
	c.registers.Sp += n
}

// Depth returns the number of frames currently saved on this CPU's stack.
func (c *CPU) Depth() int {
	return c.depth
}

// CurrentFrame returns a copy of the frame SP points at.
func (c *CPU) CurrentFrame() Frame {
	var f Frame
	sp := hostarch.Addr(c.registers.Sp)
	for i := range f {
		f[i] = c.stack.Load(sp + hostarch.Addr(i*hostarch.WordSize))
	}
	return f
}

// SetFrameReg overwrites the saved value of xn in the frame SP points at.
// The full return path loads it into xn; the fast path does so for every
// register but x0.
func (c *CPU) SetFrameReg(n int, v uint64) {
	c.stack.Store(hostarch.Addr(c.registers.Sp)+hostarch.Addr(FrameOffset(n)), v)
}
