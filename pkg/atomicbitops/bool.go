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
package atomicbitops

import (
	"sync/atomic"

	"gvisor.dev/trapframe/pkg/sync"
)

// Bool is an atomic Boolean stored as a uint32 holding 0 or 1.
//
// Don't add fields to this struct. It is important that it remain the same
// size as a uint32.
type Bool struct {
	_     sync.NoCopy
	value uint32
}

//go:nosplit
func b2u(val bool) uint32 {
	if val {
		return 1
	}
	return 0
}

// FromBool returns a Bool initialized to val.
//
//go:nosplit
func FromBool(val bool) Bool {
	return Bool{value: b2u(val)}
}

// Load is analogous to atomic.LoadBool, if such a thing existed.
//
//go:nosplit
func (b *Bool) Load() bool {
	return atomic.LoadUint32(&b.value) == 1
}

// Store is analogous to atomic.StoreBool, if such a thing existed.
//
//go:nosplit
func (b *Bool) Store(val bool) {
	atomic.StoreUint32(&b.value, b2u(val))
}

// Swap is analogous to atomic.SwapBool, if such a thing existed. Swapping in
// true and getting false back claims a one-shot flag.
//
//go:nosplit
func (b *Bool) Swap(val bool) bool {
	return atomic.SwapUint32(&b.value, b2u(val)) == 1
}
