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

// Stack is the memory backing an exception stack. It covers [Base, Top)
// and grows down from Top.
//
// Accesses outside the region panic. On hardware the same access would run
// into the guard page and take a fault that cannot be recovered.
type Stack struct {
	base hostarch.Addr
	mem  []byte
}

// NewStack returns a zeroed stack of size bytes starting at base.
func NewStack(base hostarch.Addr, size uint64) *Stack {
	if _, ok := base.AddLength(size); !ok {
		panic(fmt.Sprintf("ring0: stack at %v of size %#x overflows", base, size))
	}
	return &Stack{
		base: base,
		mem:  make([]byte, size),
	}
}

// Base returns the lowest address of the stack.
func (s *Stack) Base() hostarch.Addr {
	return s.base
}

// Top returns the address just above the stack; the initial SP.
func (s *Stack) Top() hostarch.Addr {
	return s.base + hostarch.Addr(len(s.mem))
}

// Size returns the size of the stack in bytes.
func (s *Stack) Size() uint64 {
	return uint64(len(s.mem))
}

// Contains returns true if the word at addr lies within the stack.
func (s *Stack) Contains(addr hostarch.Addr) bool {
	if addr < s.base {
		return false
	}
	off := uint64(addr - s.base)
	size := uint64(len(s.mem))
	return off <= size && size-off >= hostarch.WordSize
}

func (s *Stack) index(addr hostarch.Addr) int {
	if !s.Contains(addr) {
		panic(fmt.Sprintf("ring0: stack access at %v outside [%v, %v)", addr, s.base, s.Top()))
	}
	return int(addr - s.base)
}

// Load reads the word at addr.
func (s *Stack) Load(addr hostarch.Addr) uint64 {
	i := s.index(addr)
	return hostarch.ByteOrder.Uint64(s.mem[i:])
}

// Store writes the word v at addr.
func (s *Stack) Store(addr hostarch.Addr, v uint64) {
	i := s.index(addr)
	hostarch.ByteOrder.PutUint64(s.mem[i:], v)
}
