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

	"gvisor.dev/trapframe/pkg/bits"
)

// Syndrome is the value of ESR_EL1 for a synchronous exception.
type Syndrome uint64

// ESR_EL1 fields.
const (
	esrISSShift = 0
	esrISSWidth = 25
	esrILShift  = 25
	esrECShift  = 26
	esrECWidth  = 6

	svcImmWidth = 16
)

// Class returns the exception class.
func (s Syndrome) Class() ExceptionClass {
	return ExceptionClass(bits.Field64(uint64(s), esrECShift, esrECWidth))
}

// IL returns true if the trapped instruction was 32 bits wide.
func (s Syndrome) IL() bool {
	return bits.IsOn64(uint64(s), 1<<esrILShift)
}

// ISS returns the instruction specific syndrome.
func (s Syndrome) ISS() uint32 {
	return uint32(bits.Field64(uint64(s), esrISSShift, esrISSWidth))
}

// SVCImmediate returns the immediate of an SVC instruction. It is only
// meaningful when Class is ECSVC64 or ECSVC32.
func (s Syndrome) SVCImmediate() uint16 {
	return uint16(bits.Field64(uint64(s), esrISSShift, svcImmWidth))
}

// String implements fmt.Stringer.String.
func (s Syndrome) String() string {
	return fmt.Sprintf("ESR %#x (%v, ISS %#x)", uint64(s), s.Class(), s.ISS())
}

// MakeSyndrome builds a 32-bit-instruction syndrome from a class and ISS.
func MakeSyndrome(ec ExceptionClass, iss uint32) Syndrome {
	return Syndrome(uint64(ec)<<esrECShift | 1<<esrILShift | uint64(iss)&(1<<esrISSWidth-1))
}

// ExceptionClass is the EC field of ESR_EL1.
type ExceptionClass uint8

// Exception classes.
const (
	ECUnknown      ExceptionClass = 0x00
	ECWFx          ExceptionClass = 0x01
	ECCP15RT       ExceptionClass = 0x03
	ECCP15RRT      ExceptionClass = 0x04
	ECCP14RT       ExceptionClass = 0x05
	ECCP14LS       ExceptionClass = 0x06
	ECFPAccess     ExceptionClass = 0x07
	ECOther        ExceptionClass = 0x0a
	ECCP14RRT      ExceptionClass = 0x0c
	ECBTI          ExceptionClass = 0x0d
	ECIllegalState ExceptionClass = 0x0e
	ECSVC32        ExceptionClass = 0x11
	ECSys128       ExceptionClass = 0x14
	ECSVC64        ExceptionClass = 0x15
	ECHVC64        ExceptionClass = 0x16
	ECSMC64        ExceptionClass = 0x17
	ECSys64        ExceptionClass = 0x18
	ECSVE          ExceptionClass = 0x19
	ECTStart       ExceptionClass = 0x1b
	ECPAC          ExceptionClass = 0x1c
	ECSME          ExceptionClass = 0x1d
	ECIABTLow      ExceptionClass = 0x20
	ECIABTCur      ExceptionClass = 0x21
	ECPCAlign      ExceptionClass = 0x22
	ECDABTLow      ExceptionClass = 0x24
	ECDABTCur      ExceptionClass = 0x25
	ECSPAlign      ExceptionClass = 0x26
	ECMOPS         ExceptionClass = 0x27
	ECFP32         ExceptionClass = 0x28
	ECFP64         ExceptionClass = 0x2c
	ECGCS          ExceptionClass = 0x2d
	ECSError       ExceptionClass = 0x2f
	ECBreakptLow   ExceptionClass = 0x30
	ECBreakptCur   ExceptionClass = 0x31
	ECSoftStpLow   ExceptionClass = 0x32
	ECSoftStpCur   ExceptionClass = 0x33
	ECWatchptLow   ExceptionClass = 0x34
	ECWatchptCur   ExceptionClass = 0x35
	ECBKPT32       ExceptionClass = 0x38
	ECBRK64        ExceptionClass = 0x3c
	ECProfiling    ExceptionClass = 0x3d
)

var exceptionClassNames = map[ExceptionClass]string{
	ECWFx:          "Trapped WF* instruction",
	ECCP15RT:       "Trapped MCR or MRC access with coproc=0b1111",
	ECCP15RRT:      "Trapped MCRR or MRRC access with coproc=0b1111",
	ECCP14RT:       "Trapped MCR or MRC access with coproc=0b1110",
	ECCP14LS:       "Trapped LDC or STC access",
	ECFPAccess:     "Access to SME, SVE, Advanced SIMD or floating-point functionality",
	ECOther:        "Trapped execution of an instruction not covered by other classes",
	ECCP14RRT:      "Trapped MRRC access with coproc=0b1110",
	ECBTI:          "Branch Target Exception",
	ECIllegalState: "Illegal Execution state",
	ECSVC32:        "SVC instruction execution in AArch32 state",
	ECSys128:       "Trapped MSRR, MRRS or System instruction execution in AArch64 state",
	ECSVC64:        "SVC instruction execution in AArch64 state",
	ECHVC64:        "HVC instruction execution in AArch64 state",
	ECSMC64:        "SMC instruction execution in AArch64 state",
	ECSys64:        "Trapped MSR, MRS or System instruction execution in AArch64 state",
	ECSVE:          "Access to SVE functionality",
	ECTStart:       "Exception from an access to a TSTART instruction",
	ECPAC:          "Exception from a PAC Fail",
	ECSME:          "Access to SME functionality",
	ECIABTLow:      "Instruction Abort from a lower Exception level",
	ECIABTCur:      "Instruction Abort taken without a change in Exception level",
	ECPCAlign:      "PC alignment fault exception",
	ECDABTLow:      "Data Abort exception from a lower Exception level",
	ECDABTCur:      "Data Abort exception taken without a change in Exception level",
	ECSPAlign:      "SP alignment fault exception",
	ECMOPS:         "Memory Operation Exception",
	ECFP32:         "Trapped floating-point exception taken from AArch32 state",
	ECFP64:         "Trapped floating-point exception taken from AArch64 state",
	ECGCS:          "GCS exception",
	ECSError:       "SError exception",
	ECBreakptLow:   "Breakpoint exception from a lower Exception level",
	ECBreakptCur:   "Breakpoint exception taken without a change in Exception level",
	ECSoftStpLow:   "Software Step exception from a lower Exception level",
	ECSoftStpCur:   "Software Step exception taken without a change in Exception level",
	ECWatchptLow:   "Watchpoint exception from a lower Exception level",
	ECWatchptCur:   "Watchpoint exception taken without a change in Exception level",
	ECBKPT32:       "BKPT instruction execution in AArch32 state",
	ECBRK64:        "BRK instruction execution in AArch64 state",
	ECProfiling:    "Profiling exception",
}

// String implements fmt.Stringer.String.
func (ec ExceptionClass) String() string {
	if name, ok := exceptionClassNames[ec]; ok {
		return name
	}
	return "Unknown reason"
}

// IsSVC returns true for the classes raised by a supervisor call.
func (ec ExceptionClass) IsSVC() bool {
	return ec == ECSVC64 || ec == ECSVC32
}
