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

// Package hostarch contains host arch address operations for AArch64 guests.
package hostarch

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

const (
	// PageShift is the binary log of the guest page size (4K granule).
	PageShift = 12

	// PageSize is the guest page size.
	PageSize = 1 << PageShift

	// StackAlignment is the alignment AArch64 requires of SP at every call
	// and exception boundary.
	StackAlignment = 16

	// WordSize is the size of a general-purpose register.
	WordSize = 8
)

// ByteOrder is the native byte order (little endian).
var ByteOrder = binary.LittleEndian

// HostPageSize returns the page size of the machine running the model. It
// may differ from PageSize on arm64 hosts configured with 16K or 64K pages.
func HostPageSize() int {
	return unix.Getpagesize()
}
