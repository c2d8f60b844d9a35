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

package cpuid

import (
	"runtime"

	"golang.org/x/sys/cpu"
	"gvisor.dev/trapframe/pkg/log"
)

// hostFeatures maps x/sys/cpu's view of the host to HWCAP features.
func hostFeatures() []Feature {
	var fs []Feature
	for _, c := range []struct {
		has bool
		f   Feature
	}{
		{cpu.ARM64.HasFP, ARM64FeatureFP},
		{cpu.ARM64.HasASIMD, ARM64FeatureASIMD},
		{cpu.ARM64.HasEVTSTRM, ARM64FeatureEVTSTRM},
		{cpu.ARM64.HasAES, ARM64FeatureAES},
		{cpu.ARM64.HasPMULL, ARM64FeaturePMULL},
		{cpu.ARM64.HasSHA1, ARM64FeatureSHA1},
		{cpu.ARM64.HasSHA2, ARM64FeatureSHA2},
		{cpu.ARM64.HasCRC32, ARM64FeatureCRC32},
		{cpu.ARM64.HasATOMICS, ARM64FeatureATOMICS},
		{cpu.ARM64.HasFPHP, ARM64FeatureFPHP},
		{cpu.ARM64.HasASIMDHP, ARM64FeatureASIMDHP},
		{cpu.ARM64.HasCPUID, ARM64FeatureCPUID},
		{cpu.ARM64.HasASIMDRDM, ARM64FeatureASIMDRDM},
		{cpu.ARM64.HasJSCVT, ARM64FeatureJSCVT},
		{cpu.ARM64.HasFCMA, ARM64FeatureFCMA},
		{cpu.ARM64.HasLRCPC, ARM64FeatureLRCPC},
		{cpu.ARM64.HasDCPOP, ARM64FeatureDCPOP},
		{cpu.ARM64.HasSHA3, ARM64FeatureSHA3},
		{cpu.ARM64.HasSM3, ARM64FeatureSM3},
		{cpu.ARM64.HasSM4, ARM64FeatureSM4},
		{cpu.ARM64.HasASIMDDP, ARM64FeatureASIMDDP},
		{cpu.ARM64.HasSHA512, ARM64FeatureSHA512},
		{cpu.ARM64.HasSVE, ARM64FeatureSVE},
		{cpu.ARM64.HasASIMDFHM, ARM64FeatureASIMDFHM},
	} {
		if c.has {
			fs = append(fs, c.f)
		}
	}
	return fs
}

func init() {
	if runtime.GOARCH != "arm64" {
		// Leave the set empty; the model still runs, with FP traps
		// left enabled.
		log.Debugf("Host is %s, no arm64 features detected", runtime.GOARCH)
		return
	}
	hostFeatureSet = NewFeatureSet(hostFeatures()...)
}
