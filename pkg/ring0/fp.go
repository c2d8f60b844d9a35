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
	"gvisor.dev/trapframe/pkg/cpuid"
)

// FPEnableBits returns the CPACR_EL1 FP/SIMD enable bits for the given
// exception levels. Without both FP and ASIMD in fs it returns zero and
// FP/SIMD instructions keep trapping.
//
// The result is meant to be ORed into CPACR_EL1 during bring-up.
func FPEnableBits(fs cpuid.FeatureSet, el0, el1 bool) uint64 {
	if !fs.HasFeature(cpuid.ARM64FeatureFP) || !fs.HasFeature(cpuid.ARM64FeatureASIMD) {
		return 0
	}
	var v uint64
	if el0 {
		v |= CPACR_EL1_FPEN0
	}
	if el1 {
		v |= CPACR_EL1_FPEN1
	}
	return v
}
