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

	"gvisor.dev/trapframe/pkg/abi/linux"
	"gvisor.dev/trapframe/pkg/atomicbitops"
	"gvisor.dev/trapframe/pkg/cpuid"
	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/log"
)

const (
	// KernelFlagsSet should always be set in the kernel.
	KernelFlagsSet = linux.PSR_MODE_EL1h | linux.PSR_D_BIT | linux.PSR_A_BIT | linux.PSR_I_BIT | linux.PSR_F_BIT

	// UserFlagsSet are always set in userspace.
	UserFlagsSet = linux.PSR_MODE_EL0t
)

// CPACR_EL1 - Coprocessor Access Control Register (EL1).
//
// These are only the FP/SIMD trap controls. Callers OR them into the value
// they program; this package never writes CPACR_EL1 itself.
const (
	// CPACR_EL1_FPEN0 permits FP/SIMD instructions at EL0 without trapping.
	CPACR_EL1_FPEN0 = 1 << 20

	// CPACR_EL1_FPEN1 permits FP/SIMD instructions at EL1 without trapping.
	CPACR_EL1_FPEN1 = 1 << 21
)

// Vector is an exception vector.
type Vector uintptr

// Exception vectors.
const (
	El1InvSync = iota
	El1InvIrq
	El1InvFiq
	El1InvError

	El1Sync
	El1Irq
	El1Fiq
	El1Err

	El0Sync
	El0Irq
	El0Fiq
	El0Err

	El0InvSync
	El0InvIrq
	El0InvFiq
	El0InvErr

	El1SyncDa
	El1SyncIa
	El1SyncSpPc
	El1SyncUndef
	El1SyncDbg
	El1SyncInv

	El0SyncSVC
	El0SyncDa
	El0SyncIa
	El0SyncFpsimdAcc
	El0SyncSveAcc
	El0SyncFpsimdExc
	El0SyncSys
	El0SyncSpPc
	El0SyncUndef
	El0SyncDbg
	El0SyncWfx
	El0SyncInv

	El0ErrNMI
	El0ErrBounce

	_NR_INTERRUPTS
)

// Dedicated EL0 vectors.
const (
	Syscall   Vector = El0SyncSVC
	PageFault Vector = El0SyncDa
)

var vectorNames = [_NR_INTERRUPTS]string{
	El1InvSync:       "El1InvSync",
	El1InvIrq:        "El1InvIrq",
	El1InvFiq:        "El1InvFiq",
	El1InvError:      "El1InvError",
	El1Sync:          "El1Sync",
	El1Irq:           "El1Irq",
	El1Fiq:           "El1Fiq",
	El1Err:           "El1Err",
	El0Sync:          "El0Sync",
	El0Irq:           "El0Irq",
	El0Fiq:           "El0Fiq",
	El0Err:           "El0Err",
	El0InvSync:       "El0InvSync",
	El0InvIrq:        "El0InvIrq",
	El0InvFiq:        "El0InvFiq",
	El0InvErr:        "El0InvErr",
	El1SyncDa:        "El1SyncDa",
	El1SyncIa:        "El1SyncIa",
	El1SyncSpPc:      "El1SyncSpPc",
	El1SyncUndef:     "El1SyncUndef",
	El1SyncDbg:       "El1SyncDbg",
	El1SyncInv:       "El1SyncInv",
	El0SyncSVC:       "El0SyncSVC",
	El0SyncDa:        "El0SyncDa",
	El0SyncIa:        "El0SyncIa",
	El0SyncFpsimdAcc: "El0SyncFpsimdAcc",
	El0SyncSveAcc:    "El0SyncSveAcc",
	El0SyncFpsimdExc: "El0SyncFpsimdExc",
	El0SyncSys:       "El0SyncSys",
	El0SyncSpPc:      "El0SyncSpPc",
	El0SyncUndef:     "El0SyncUndef",
	El0SyncDbg:       "El0SyncDbg",
	El0SyncWfx:       "El0SyncWfx",
	El0SyncInv:       "El0SyncInv",
	El0ErrNMI:        "El0ErrNMI",
	El0ErrBounce:     "El0ErrBounce",
}

// String implements fmt.Stringer.String.
func (v Vector) String() string {
	if v < _NR_INTERRUPTS {
		return vectorNames[v]
	}
	return fmt.Sprintf("Vector(%d)", uintptr(v))
}

// FromUser returns true if the vector is taken from EL0.
func (v Vector) FromUser() bool {
	switch {
	case v >= El0Sync && v <= El0InvErr:
		return true
	case v >= El0SyncSVC && v < _NR_INTERRUPTS:
		return true
	default:
		return false
	}
}

// VectorFromString returns the vector with the given name.
func VectorFromString(s string) (Vector, bool) {
	for v, name := range vectorNames {
		if name == s {
			return Vector(v), true
		}
	}
	return 0, false
}

// KernelOpts has initialization options for the kernel.
type KernelOpts struct {
	// Features is the feature set of the execution units. FP/SIMD access
	// is only enabled when it contains both FP and ASIMD.
	Features cpuid.FeatureSet

	// UserFP enables FP/SIMD access at EL0 in addition to EL1.
	UserFP bool

	// StackSize is the size of each CPU's exception stack. It is rounded
	// up to a page. Zero means DefaultStackSize.
	StackSize uint64

	// NewSlot returns the per-CPU offset slot for a new CPU. If nil, each
	// CPU gets an in-memory cell. Code running at EL1 passes TPIDR.
	NewSlot func() OffsetSlot
}

// DefaultStackSize is the exception stack size used when KernelOpts leaves
// it unset.
const DefaultStackSize = hostarch.PageSize

// Kernel is a global kernel object.
//
// This contains global state, shared by multiple CPUs.
type Kernel struct {
	// opts are the options this kernel was created with.
	opts KernelOpts

	// cpacr is the CPACR_EL1 FP/SIMD enable value given to each CPU.
	cpacr uint64

	// unhandled logs exceptions that reach the default hook.
	unhandled log.Logger

	// nextCPU is the ID handed to the next CPU created by NewCPU.
	nextCPU atomicbitops.Int32
}

// Hooks are hooks for kernel functions.
//
// Hooks run between frame save and restore. They may modify the live
// registers through CPU.Registers or the saved ones through
// CPU.SetFrameReg, and may take nested exceptions with CPU.Trap.
type Hooks interface {
	// KernelSyscall is called for system calls. The result is returned to
	// the caller in x0, which the fast return path leaves untouched.
	KernelSyscall(c *CPU)

	// KernelException handles any other exception. Every register is
	// restored from the frame on return.
	KernelException(c *CPU, vector Vector)
}

// CPUArchState contains CPU-specific arch state.
type CPUArchState struct {
	// errorCode is the syndrome (ESR_EL1) of the last exception.
	errorCode uintptr

	// errorType indicates the type of error code here, it is always set
	// along with the errorCode value above.
	//
	// It will either by 1, which indicates a user error, or 0 indicating a
	// kernel error.
	errorType uintptr

	// exception vector.
	vecCode Vector

	// lazyVFP is the value of cpacr_el1.
	lazyVFP uint64
}

// CPU is the per-CPU struct.
type CPU struct {
	// self is a self reference.
	//
	// This is always guaranteed to be at offset zero.
	self *CPU

	// kernel is reference to the kernel that this CPU was initialized
	// with.
	kernel *Kernel

	// id is the CPU number.
	id int

	// CPUArchState is architecture-specific state.
	CPUArchState

	// registers is the register file of this CPU.
	registers linux.PtraceRegs

	// stack is the memory backing this CPU's exception stack.
	stack *Stack

	// slot is this CPU's offset register.
	slot OffsetSlot

	// offsetSet is set once SetThisCPUOffset has run.
	offsetSet atomicbitops.Bool

	// depth is the number of frames currently saved on the stack.
	depth int

	// hooks are kernel hooks.
	hooks Hooks
}

// ID returns the CPU number.
func (c *CPU) ID() int {
	return c.id
}

// Registers returns a modifiable-copy of the kernel registers.
//
// This is explicitly safe to call during KernelException and KernelSyscall.
//
//go:nosplit
func (c *CPU) Registers() *linux.PtraceRegs {
	return &c.registers
}

// ErrorCode returns the last error code.
//
// The returned boolean indicates whether the error code corresponds to the
// last user error or not. If it does not, then fault information must be
// ignored.
//
//go:nosplit
func (c *CPU) ErrorCode() (value uintptr, user bool) {
	return c.errorCode, c.errorType != 0
}

// ClearErrorCode resets the error code.
//
//go:nosplit
func (c *CPU) ClearErrorCode() {
	c.errorCode = 0 // No code.
	c.errorType = 1 // User mode.
}

// Syndrome returns the syndrome of the exception being handled.
//
//go:nosplit
func (c *CPU) Syndrome() Syndrome {
	return Syndrome(c.errorCode)
}

//go:nosplit
func (c *CPU) GetVector() (value Vector) {
	return c.vecCode
}

// GetLazyVFP returns the value of cpacr_el1.
//
//go:nosplit
func (c *CPU) GetLazyVFP() (value uint64) {
	return c.lazyVFP
}
