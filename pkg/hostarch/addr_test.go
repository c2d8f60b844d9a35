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
	"testing"
)

func TestRound(t *testing.T) {
	for _, tc := range []struct {
		addr  Addr
		align uint64
		down  Addr
		up    Addr
		upOK  bool
	}{
		{0x1000, StackAlignment, 0x1000, 0x1000, true},
		{0x1008, StackAlignment, 0x1000, 0x1010, true},
		{0x100f, PageSize, 0x1000, 0x2000, true},
		{^Addr(0), StackAlignment, ^Addr(0xf), 0, false},
	} {
		if got := tc.addr.RoundDown(tc.align); got != tc.down {
			t.Errorf("%v.RoundDown(%d) = %v, want %v", tc.addr, tc.align, got, tc.down)
		}
		got, ok := tc.addr.RoundUp(tc.align)
		if ok != tc.upOK || (ok && got != tc.up) {
			t.Errorf("%v.RoundUp(%d) = %v, %t, want %v, %t", tc.addr, tc.align, got, ok, tc.up, tc.upOK)
		}
	}
}

func TestIsStackAligned(t *testing.T) {
	for addr, want := range map[Addr]bool{
		0:      true,
		0x10:   true,
		0x18:   false,
		0x1000: true,
		0x1001: false,
	} {
		if got := addr.IsStackAligned(); got != want {
			t.Errorf("%v.IsStackAligned() = %t, want %t", addr, got, want)
		}
	}
}

func TestAddLength(t *testing.T) {
	if end, ok := Addr(0x1000).AddLength(0x100); !ok || end != 0x1100 {
		t.Errorf("AddLength(0x100) = %v, %t, want 0x1100, true", end, ok)
	}
	if _, ok := (^Addr(0)).AddLength(2); ok {
		t.Errorf("AddLength overflow reported ok")
	}
}
