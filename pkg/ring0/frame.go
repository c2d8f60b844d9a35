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
	"unsafe"

	"gvisor.dev/trapframe/pkg/hostarch"
)

// Frame layout.
//
// A frame is sixteen 16-byte pairs. The lowest pair holds x0 and a zero pad
// word, so that the fast return path can step over x0 with one SP
// adjustment. Pair i (i >= 1) holds x(2i-1) at its lower address and x(2i)
// above it, up to x29 (frame pointer) and x30 (link register) at the top.
const (
	// FrameWords is the number of 64-bit slots in a frame.
	FrameWords = 32

	// FramePairs is the number of register pairs in a frame.
	FramePairs = FrameWords / 2

	// PairSize is the stack distance covered by one pair.
	PairSize = 2 * hostarch.WordSize

	// FrameSize is the number of bytes a saved frame occupies.
	FrameSize = FrameWords * hostarch.WordSize

	// padSlot is the slot above x0.
	padSlot = 1

	// noReg marks a pair half that holds no register.
	noReg = -1
)

// Frame is a saved register frame, indexed by slot. Use Reg to read a
// register by number.
type Frame [FrameWords]uint64

// A Frame must be exactly FrameSize bytes.
var _ [unsafe.Sizeof(Frame{}) - FrameSize]struct{}
var _ [FrameSize - unsafe.Sizeof(Frame{})]struct{}

// regPair is one 16-byte unit of the frame. lo is stored at the lower
// address.
type regPair struct {
	lo, hi int
}

// framePairs lists the pairs from the lowest address (the final SP after a
// save) upwards. Saving walks it backwards; restoring walks it forwards.
var framePairs = func() (p [FramePairs]regPair) {
	p[0] = regPair{0, noReg}
	for i := 1; i < FramePairs; i++ {
		p[i] = regPair{2*i - 1, 2 * i}
	}
	return p
}()

// frameSlot returns the slot holding register n.
func frameSlot(n int) int {
	if n < 0 || n > 30 {
		panic(fmt.Sprintf("ring0: no frame slot for x%d", n))
	}
	if n == 0 {
		return 0
	}
	return n + 1
}

// FrameOffset returns the byte offset of register xn from the base of a
// saved frame.
func FrameOffset(n int) uintptr {
	return uintptr(frameSlot(n)) * hostarch.WordSize
}

// Reg returns the saved value of xn.
func (f *Frame) Reg(n int) uint64 {
	return f[frameSlot(n)]
}

// SetReg sets the saved value of xn.
func (f *Frame) SetReg(n int, v uint64) {
	f[frameSlot(n)] = v
}

// Pad returns the word stored above x0.
func (f *Frame) Pad() uint64 {
	return f[padSlot]
}
