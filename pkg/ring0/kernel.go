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

// Package ring0 models the AArch64 EL1 exception path: the register frame
// pushed when a trap is taken, the two restorers that pop it, and the
// per-CPU offset held in TPIDR_EL1.
//
// CPUs are simulated. Registers live in a linux.PtraceRegs and frames are
// pushed onto a Stack of plain memory, so the save and restore sequences
// can be checked on any host.
package ring0

import (
	"fmt"
	"time"

	"gvisor.dev/trapframe/pkg/abi/linux"
	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/log"
)

const (
	// kernelStackRegion is where CPU exception stacks are placed.
	kernelStackRegion hostarch.Addr = 0xffff_0000_1000_0000

	// unhandledLogEvery limits how often the default hooks log.
	unhandledLogEvery = time.Second
)

// New creates a new kernel.
//
// N.B. that constraints on KernelOpts must be satisfied.
func New(opts KernelOpts) *Kernel {
	if opts.StackSize == 0 {
		opts.StackSize = DefaultStackSize
	}
	size, ok := hostarch.Addr(opts.StackSize).RoundUp(hostarch.PageSize)
	if !ok {
		panic(fmt.Sprintf("ring0: stack size %#x overflows", opts.StackSize))
	}
	opts.StackSize = uint64(size)
	if opts.NewSlot == nil {
		opts.NewSlot = NewOffsetCell
	}
	return &Kernel{
		opts:      opts,
		cpacr:     FPEnableBits(opts.Features, opts.UserFP, true),
		unhandled: log.BasicRateLimitedLogger(unhandledLogEvery),
	}
}

// StackSize returns the size of each CPU's exception stack.
func (k *Kernel) StackSize() uint64 {
	return k.opts.StackSize
}

// stackBase returns the base of the stack for the given CPU. Stacks are
// separated by an unmapped guard page.
func (k *Kernel) stackBase(cpuID int) hostarch.Addr {
	stride := hostarch.Addr(k.opts.StackSize + hostarch.PageSize)
	return kernelStackRegion + hostarch.Addr(cpuID)*stride
}

// NewCPU creates a new CPU associated with this Kernel.
//
// If hooks is nil, then the default hooks will be used.
func (k *Kernel) NewCPU(hooks Hooks) *CPU {
	c := &CPU{}
	c.Init(k, int(k.nextCPU.Add(1))-1, hooks)
	return c
}

// Init initializes a CPU.
//
// Init allows embedding in other objects.
func (c *CPU) Init(k *Kernel, cpuID int, hooks Hooks) {
	c.self = c   // Set self reference.
	c.kernel = k // Set kernel reference.
	c.id = cpuID
	c.stack = NewStack(k.stackBase(cpuID), k.opts.StackSize)
	c.slot = k.opts.NewSlot()
	c.lazyVFP = k.cpacr

	// Start with an empty stack and kernel flags.
	c.registers = linux.PtraceRegs{
		Sp:     c.StackTop(),
		Pstate: KernelFlagsSet,
	}

	// Set mandatory hooks.
	if hooks == nil {
		hooks = defaultHooks{}
	}
	c.hooks = hooks
}

// SetHooks sets the kernel hooks.
func (c *CPU) SetHooks(hooks Hooks) {
	if hooks == nil {
		hooks = defaultHooks{}
	}
	c.hooks = hooks
}

// Stack returns this CPU's exception stack.
func (c *CPU) Stack() *Stack {
	return c.stack
}

// StackTop returns the kernel's stack address.
//
//go:nosplit
func (c *CPU) StackTop() uint64 {
	return uint64(c.stack.Top())
}

// ReturnPath identifies how an exception returned.
type ReturnPath int

const (
	// FastReturn restored x1-x30 and left x0 as the handler set it.
	FastReturn ReturnPath = iota

	// FullReturn restored every register.
	FullReturn
)

// String implements fmt.Stringer.String.
func (p ReturnPath) String() string {
	switch p {
	case FastReturn:
		return "fast"
	case FullReturn:
		return "full"
	default:
		return fmt.Sprintf("ReturnPath(%d)", int(p))
	}
}

// IsSyscall returns true if an exception taken on vector with syndrome esr
// is a system call.
func IsSyscall(vector Vector, esr Syndrome) bool {
	switch vector {
	case Syscall:
		return true
	case El0Sync, El1Sync:
		return esr.Class().IsSVC()
	default:
		return false
	}
}

// Trap takes one exception on c. It saves the registers, runs the matching
// hook and returns through the fast path for system calls or the full path
// for anything else.
//
// Trap may be called from within a hook to model a nested exception. The
// vector and syndrome seen by the outer hook are restored when the nested
// one returns.
func (c *CPU) Trap(vector Vector, esr Syndrome) ReturnPath {
	prevVec, prevErr, prevType := c.vecCode, c.errorCode, c.errorType
	defer func() {
		c.vecCode, c.errorCode, c.errorType = prevVec, prevErr, prevType
	}()

	c.vecCode = vector
	c.errorCode = uintptr(esr)
	c.errorType = 0
	if vector.FromUser() {
		c.errorType = 1
	}

	c.SaveRegs()
	if IsSyscall(vector, esr) {
		c.hooks.KernelSyscall(c)
		c.RestoreSyscallRegs()
		return FastReturn
	}
	c.hooks.KernelException(c, vector)
	c.RestoreExceptionRegs()
	return FullReturn
}

// defaultHooks implements hooks.
type defaultHooks struct{}

// KernelSyscall implements Hooks.KernelSyscall.
func (defaultHooks) KernelSyscall(c *CPU) {
	esr := c.Syndrome()
	log.Debugf("CPU %d: syscall %d requested", c.id, esr.SVCImmediate())
}

// KernelException implements Hooks.KernelException.
func (defaultHooks) KernelException(c *CPU, vector Vector) {
	esr := c.Syndrome()
	c.kernel.unhandled.Warningf("CPU %d: unhandled exception on %v: %v (%v)", c.id, vector, esr.Class(), esr)
}
