// Copyright 2024 The gVisor Authors.
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

// Package cpuid provides basic functionality for creating and adjusting
// AArch64 CPU feature sets.
//
// To use FeatureSets, one should start with an existing FeatureSet (either
// NewFeatureSet or HostFeatureSet()) and then test for features as desired.
//
// For example, only allow lazy FP/SIMD enablement when the unit has both:
//
//	fs := HostFeatureSet()
//	if fs.HasFeature(ARM64FeatureFP) && fs.HasFeature(ARM64FeatureASIMD) {
//		...
//	}
package cpuid

import (
	"fmt"
	"strings"

	"gvisor.dev/trapframe/pkg/bits"
)

// Feature is a unique identifier for a particular cpu feature.
//
// Features are numbered according to the ELF HWCAP definition.
// arch/arm64/include/uapi/asm/hwcap.h
type Feature int

// FeatureSet is a set of Features for a CPU, stored as an AT_HWCAP bitmask.
type FeatureSet struct {
	hwCap uint64
}

// NewFeatureSet returns a FeatureSet with the given features.
func NewFeatureSet(fs ...Feature) FeatureSet {
	var set FeatureSet
	for _, f := range fs {
		set.hwCap |= bits.MaskOf64(int(f))
	}
	return set
}

// FromHWCap returns the FeatureSet described by an AT_HWCAP value.
func FromHWCap(hwCap uint64) FeatureSet {
	return FeatureSet{hwCap: hwCap}
}

// HWCap returns the AT_HWCAP value for this set.
func (fs FeatureSet) HWCap() uint64 {
	return fs.hwCap
}

// HasFeature tests whether or not a feature is in the given feature set.
func (fs FeatureSet) HasFeature(feature Feature) bool {
	return bits.IsOn64(fs.hwCap, bits.MaskOf64(int(feature)))
}

// Features returns the features in the set, in HWCAP bit order.
func (fs FeatureSet) Features() []Feature {
	var out []Feature
	bits.ForEachSetBit64(fs.hwCap, func(i int) {
		out = append(out, Feature(i))
	})
	return out
}

// String implements fmt.Stringer.String.
func (fs FeatureSet) String() string {
	var names []string
	for _, f := range fs.Features() {
		names = append(names, f.String())
	}
	return strings.Join(names, " ")
}

// String implements fmt.Stringer.String.
func (f Feature) String() string {
	if s, ok := arm64FeatureStrings[f]; ok {
		return s
	}
	return fmt.Sprintf("<cpuflag %d>", f)
}

// FeatureFromString returns the Feature associated with the given feature
// string plus a bool to indicate if it could find the feature.
func FeatureFromString(s string) (Feature, bool) {
	for f, name := range arm64FeatureStrings {
		if name == s {
			return f, true
		}
	}
	return 0, false
}

// HostFeatureSet returns the FeatureSet of the host machine. On hosts that
// are not arm64 the set is empty.
func HostFeatureSet() FeatureSet {
	return hostFeatureSet
}

var hostFeatureSet FeatureSet
