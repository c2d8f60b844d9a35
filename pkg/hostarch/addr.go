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

package hostarch

import (
	"fmt"
)

// Addr represents an address in an unspecified address space.
type Addr uint64

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow the range of Addr.
//
// Note: This function is usually used to get the end of an address range
// defined by its start address and length. Since the resulting end is
// exclusive, end == 0 is technically valid, and corresponds to a range that
// extends to the end of the address space, but ok will be false. This isn't
// expected to ever come up in practice.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	// The second half of the following check is needed in case uint64 is
	// larger than Addr.
	ok = end >= v && length <= uint64(^Addr(0))
	return
}

// RoundDown returns the address rounded down to the nearest multiple of
// align, which must be a power of two.
func (v Addr) RoundDown(align uint64) Addr {
	return v & ^Addr(align-1)
}

// RoundUp returns the address rounded up to the nearest multiple of align,
// which must be a power of two. ok is true iff rounding up did not wrap
// around.
func (v Addr) RoundUp(align uint64) (addr Addr, ok bool) {
	addr = Addr(v + Addr(align) - 1).RoundDown(align)
	ok = addr >= v
	return
}

// IsAligned returns true if v is a multiple of align, which must be a power
// of two.
func (v Addr) IsAligned(align uint64) bool {
	return v&Addr(align-1) == 0
}

// IsStackAligned returns true if v satisfies the AArch64 SP alignment rule.
func (v Addr) IsStackAligned() bool {
	return v.IsAligned(StackAlignment)
}

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#x", uint64(v))
}
