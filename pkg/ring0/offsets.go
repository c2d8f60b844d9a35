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
	"io"
	"reflect"

	"gvisor.dev/trapframe/pkg/abi/linux"
)

func define(w io.Writer, name string, value uintptr) {
	fmt.Fprintf(w, "#define %-24s 0x%02x\n", name, value)
}

// Emit prints architecture-specific offsets as assembler definitions.
func Emit(w io.Writer) {
	fmt.Fprintf(w, "// Automatically generated, do not edit.\n")

	c := &CPU{}
	base := reflect.ValueOf(c).Pointer()
	fmt.Fprintf(w, "\n// CPU offsets.\n")
	define(w, "CPU_SELF", reflect.ValueOf(&c.self).Pointer()-base)
	define(w, "CPU_REGISTERS", reflect.ValueOf(&c.registers).Pointer()-base)
	define(w, "CPU_ERROR_CODE", reflect.ValueOf(&c.errorCode).Pointer()-base)
	define(w, "CPU_ERROR_TYPE", reflect.ValueOf(&c.errorType).Pointer()-base)
	define(w, "CPU_VECTOR_CODE", reflect.ValueOf(&c.vecCode).Pointer()-base)
	define(w, "CPU_LAZY_VFP", reflect.ValueOf(&c.lazyVFP).Pointer()-base)

	fmt.Fprintf(w, "\n// Exception frame.\n")
	define(w, "FRAME_SIZE", FrameSize)
	define(w, "FRAME_PAIR_SIZE", PairSize)
	define(w, "FRAME_X0", FrameOffset(0))
	define(w, "FRAME_PAD", padSlot*8)
	for n := 1; n <= linux.LinkRegister; n++ {
		define(w, fmt.Sprintf("FRAME_X%d", n), FrameOffset(n))
	}

	fmt.Fprintf(w, "\n// CPACR_EL1 bits.\n")
	define(w, "CPACR_EL1_FPEN0", CPACR_EL1_FPEN0)
	define(w, "CPACR_EL1_FPEN1", CPACR_EL1_FPEN1)

	fmt.Fprintf(w, "\n// Bits.\n")
	define(w, "KERNEL_FLAGS_SET", KernelFlagsSet)
	define(w, "USER_FLAGS_SET", UserFlagsSet)

	fmt.Fprintf(w, "\n// Vectors.\n")
	for v, name := range vectorNames {
		define(w, name, uintptr(v))
	}

	p := &linux.PtraceRegs{}
	pbase := reflect.ValueOf(p).Pointer()
	fmt.Fprintf(w, "\n// Ptrace registers.\n")
	for n := range p.Regs {
		define(w, fmt.Sprintf("PTRACE_R%d", n), reflect.ValueOf(&p.Regs[n]).Pointer()-pbase)
	}
	define(w, "PTRACE_SP", reflect.ValueOf(&p.Sp).Pointer()-pbase)
	define(w, "PTRACE_PC", reflect.ValueOf(&p.Pc).Pointer()-pbase)
	define(w, "PTRACE_PSTATE", reflect.ValueOf(&p.Pstate).Pointer()-pbase)
}
