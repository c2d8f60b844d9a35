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

// ARM64 features are numbered by their AT_HWCAP bit.
const (
	ARM64FeatureFP Feature = iota
	ARM64FeatureASIMD
	ARM64FeatureEVTSTRM
	ARM64FeatureAES
	ARM64FeaturePMULL
	ARM64FeatureSHA1
	ARM64FeatureSHA2
	ARM64FeatureCRC32
	ARM64FeatureATOMICS
	ARM64FeatureFPHP
	ARM64FeatureASIMDHP
	ARM64FeatureCPUID
	ARM64FeatureASIMDRDM
	ARM64FeatureJSCVT
	ARM64FeatureFCMA
	ARM64FeatureLRCPC
	ARM64FeatureDCPOP
	ARM64FeatureSHA3
	ARM64FeatureSM3
	ARM64FeatureSM4
	ARM64FeatureASIMDDP
	ARM64FeatureSHA512
	ARM64FeatureSVE
	ARM64FeatureASIMDFHM
)

var arm64FeatureStrings = map[Feature]string{
	ARM64FeatureFP:       "fp",
	ARM64FeatureASIMD:    "asimd",
	ARM64FeatureEVTSTRM:  "evtstrm",
	ARM64FeatureAES:      "aes",
	ARM64FeaturePMULL:    "pmull",
	ARM64FeatureSHA1:     "sha1",
	ARM64FeatureSHA2:     "sha2",
	ARM64FeatureCRC32:    "crc32",
	ARM64FeatureATOMICS:  "atomics",
	ARM64FeatureFPHP:     "fphp",
	ARM64FeatureASIMDHP:  "asimdhp",
	ARM64FeatureCPUID:    "cpuid",
	ARM64FeatureASIMDRDM: "asimdrdm",
	ARM64FeatureJSCVT:    "jscvt",
	ARM64FeatureFCMA:     "fcma",
	ARM64FeatureLRCPC:    "lrcpc",
	ARM64FeatureDCPOP:    "dcpop",
	ARM64FeatureSHA3:     "sha3",
	ARM64FeatureSM3:      "sm3",
	ARM64FeatureSM4:      "sm4",
	ARM64FeatureASIMDDP:  "asimddp",
	ARM64FeatureSHA512:   "sha512",
	ARM64FeatureSVE:      "sve",
	ARM64FeatureASIMDFHM: "asimdfhm",
}
