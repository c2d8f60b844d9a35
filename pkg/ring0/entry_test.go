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
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/trapframe/pkg/abi/linux"
	"gvisor.dev/trapframe/pkg/hostarch"
)

// newTestCPU returns a CPU with distinct values in every register.
func newTestCPU(t *testing.T) *CPU {
	t.Helper()
	c := New(KernelOpts{}).NewCPU(nil)
	r := c.Registers()
	for i := range r.Regs {
		r.Regs[i] = 0x1000 + uint64(i)*0x11
	}
	r.Pc = 0xffff_0000_0008_1000
	return c
}

// expectPanic runs fn and fails the test unless it panics.
func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestSaveRegsDecrementsFrameSize(t *testing.T) {
	c := newTestCPU(t)
	for depth := 1; depth <= 3; depth++ {
		before := c.Registers().Sp
		want := *c.Registers()
		want.Sp -= FrameSize
		c.SaveRegs()
		if diff := cmp.Diff(want, *c.Registers()); diff != "" {
			t.Errorf("depth %d: registers after SaveRegs (-want +got):\n%s", depth, diff)
		}
		if got := before - c.Registers().Sp; got != 256 {
			t.Errorf("depth %d: SP decremented by %d, want 256", depth, got)
		}
		if got := c.Depth(); got != depth {
			t.Errorf("Depth() = %d, want %d", got, depth)
		}
	}
}

func TestFrameLayout(t *testing.T) {
	c := newTestCPU(t)
	regs := *c.Registers()
	c.SaveRegs()

	sp := hostarch.Addr(c.Registers().Sp)
	if got := c.Stack().Load(sp); got != regs.Regs[0] {
		t.Errorf("x0 at SP+0x00 = %#x, want %#x", got, regs.Regs[0])
	}
	if got := c.Stack().Load(sp + 8); got != 0 {
		t.Errorf("pad at SP+0x08 = %#x, want 0", got)
	}
	for n := 1; n <= linux.LinkRegister; n++ {
		off := hostarch.Addr(8 * (n + 1))
		if got := c.Stack().Load(sp + off); got != regs.Regs[n] {
			t.Errorf("x%d at SP+%#x = %#x, want %#x", n, uint64(off), got, regs.Regs[n])
		}
	}

	f := c.CurrentFrame()
	for n := 0; n <= linux.LinkRegister; n++ {
		if got := f.Reg(n); got != regs.Regs[n] {
			t.Errorf("Frame.Reg(%d) = %#x, want %#x", n, got, regs.Regs[n])
		}
	}
	if f.Pad() != 0 {
		t.Errorf("Frame.Pad() = %#x, want 0", f.Pad())
	}
}

func TestFrameOffset(t *testing.T) {
	for _, tc := range []struct {
		reg  int
		want uintptr
	}{
		{0, 0x00},
		{1, 0x10},
		{2, 0x18},
		{28, 0xe8},
		{29, 0xf0},
		{30, 0xf8},
	} {
		if got := FrameOffset(tc.reg); got != tc.want {
			t.Errorf("FrameOffset(%d) = %#x, want %#x", tc.reg, got, tc.want)
		}
	}
	expectPanic(t, "FrameOffset(31)", func() { FrameOffset(31) })
	expectPanic(t, "FrameOffset(-1)", func() { FrameOffset(-1) })
}

func TestFramePairsCoverEveryRegister(t *testing.T) {
	seen := make(map[int]int)
	for i, p := range framePairs {
		if got, want := frameSlot(p.lo), 2*i; got != want {
			t.Errorf("pair %d: x%d in slot %d, want %d", i, p.lo, got, want)
		}
		seen[p.lo]++
		if p.hi != noReg {
			seen[p.hi]++
		}
	}
	for n := 0; n <= linux.LinkRegister; n++ {
		if seen[n] != 1 {
			t.Errorf("x%d saved %d times, want 1", n, seen[n])
		}
	}
}

func TestRestoreExceptionRegsRoundTrip(t *testing.T) {
	c := newTestCPU(t)
	want := *c.Registers()

	c.SaveRegs()
	// Clobber everything the handler may touch.
	for i := range c.Registers().Regs {
		c.Registers().Regs[i] = 0xdead0000 + uint64(i)
	}
	c.RestoreExceptionRegs()

	if diff := cmp.Diff(want, *c.Registers()); diff != "" {
		t.Errorf("registers after full restore (-want +got):\n%s", diff)
	}
	if c.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", c.Depth())
	}
}

func TestRestoreSyscallRegsKeepsX0(t *testing.T) {
	c := newTestCPU(t)
	want := *c.Registers()

	c.SaveRegs()
	for i := range c.Registers().Regs {
		c.Registers().Regs[i] = 0xdead0000 + uint64(i)
	}
	c.Registers().SetReturnValue(0x7777)
	c.RestoreSyscallRegs()

	want.Regs[0] = 0x7777
	if diff := cmp.Diff(want, *c.Registers()); diff != "" {
		t.Errorf("registers after fast restore (-want +got):\n%s", diff)
	}
}

func TestRestoreScenario(t *testing.T) {
	for _, tc := range []struct {
		name    string
		restore func(c *CPU)
		wantX0  uint64
	}{
		{"fast", (*CPU).RestoreSyscallRegs, 999},
		{"full", (*CPU).RestoreExceptionRegs, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := New(KernelOpts{}).NewCPU(nil)
			r := c.Registers()
			for i := 0; i <= 28; i++ {
				r.Regs[i] = uint64(i)
			}
			sp := r.Sp

			c.SaveRegs()
			r.Regs[0] = 999
			tc.restore(c)

			if r.Regs[0] != tc.wantX0 {
				t.Errorf("x0 = %d, want %d", r.Regs[0], tc.wantX0)
			}
			for i := 1; i <= 28; i++ {
				if r.Regs[i] != uint64(i) {
					t.Errorf("x%d = %d, want %d", i, r.Regs[i], i)
				}
			}
			if r.Sp != sp {
				t.Errorf("SP = %#x, want %#x", r.Sp, sp)
			}
		})
	}
}

func TestSetFrameReg(t *testing.T) {
	c := newTestCPU(t)
	want := *c.Registers()

	c.SaveRegs()
	c.SetFrameReg(0, 0xabc)
	c.SetFrameReg(30, 0xffff_0000_0000_4000)
	c.RestoreExceptionRegs()

	want.Regs[0] = 0xabc
	want.Regs[30] = 0xffff_0000_0000_4000
	if diff := cmp.Diff(want, *c.Registers()); diff != "" {
		t.Errorf("registers (-want +got):\n%s", diff)
	}

	// The fast path ignores the saved x0 entirely.
	c.SaveRegs()
	c.SetFrameReg(0, 0x123)
	c.RestoreSyscallRegs()
	if got := c.Registers().Regs[0]; got != 0xabc {
		t.Errorf("x0 after fast restore = %#x, want %#x", got, 0xabc)
	}
}

func TestNestedFrames(t *testing.T) {
	c := newTestCPU(t)
	outer := *c.Registers()

	c.SaveRegs() // F1
	for i := range c.Registers().Regs {
		c.Registers().Regs[i] = 0x2000 + uint64(i)
	}
	inner := *c.Registers()

	c.SaveRegs() // F2
	if c.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", c.Depth())
	}
	if got, want := c.Registers().Sp, outer.Sp-2*FrameSize; got != want {
		t.Errorf("SP with two frames = %#x, want %#x", got, want)
	}
	for i := range c.Registers().Regs {
		c.Registers().Regs[i] = 0x3000 + uint64(i)
	}
	c.Registers().Regs[0] = 42
	c.RestoreSyscallRegs() // F2

	inner.Regs[0] = 42
	if diff := cmp.Diff(inner, *c.Registers()); diff != "" {
		t.Errorf("registers after inner restore (-want +got):\n%s", diff)
	}

	c.RestoreExceptionRegs() // F1
	if diff := cmp.Diff(outer, *c.Registers()); diff != "" {
		t.Errorf("registers after outer restore (-want +got):\n%s", diff)
	}
}

func TestAllocStack(t *testing.T) {
	for _, n := range []uint64{0, 16, 256, 4096} {
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			c := newTestCPU(t)
			want := *c.Registers()
			c.AllocStack(n)
			if got := want.Sp - c.Registers().Sp; got != n {
				t.Errorf("AllocStack(%d) moved SP by %d", n, got)
			}
			c.DeallocStack(n)
			if diff := cmp.Diff(want, *c.Registers()); diff != "" {
				t.Errorf("registers (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameBelowAllocation(t *testing.T) {
	c := newTestCPU(t)
	want := *c.Registers()

	c.AllocStack(32)
	c.Stack().Store(hostarch.Addr(c.Registers().Sp), 0x5a5a)
	c.SaveRegs()
	c.RestoreExceptionRegs()
	if got := c.Stack().Load(hostarch.Addr(c.Registers().Sp)); got != 0x5a5a {
		t.Errorf("local at SP = %#x, want 0x5a5a", got)
	}
	c.DeallocStack(32)

	if diff := cmp.Diff(want, *c.Registers()); diff != "" {
		t.Errorf("registers (-want +got):\n%s", diff)
	}
}

func TestRestoreWithoutFramePanics(t *testing.T) {
	c := newTestCPU(t)
	expectPanic(t, "RestoreSyscallRegs", c.RestoreSyscallRegs)
	expectPanic(t, "RestoreExceptionRegs", c.RestoreExceptionRegs)
}

func TestStackOverflowPanics(t *testing.T) {
	c := New(KernelOpts{StackSize: hostarch.PageSize}).NewCPU(nil)
	frames := hostarch.PageSize / FrameSize
	for i := 0; i < frames; i++ {
		c.SaveRegs()
	}
	expectPanic(t, "SaveRegs past the stack base", c.SaveRegs)
}
