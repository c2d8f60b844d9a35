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

package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/pkg/cpuid"
	"gvisor.dev/trapframe/pkg/ring0"
	"gvisor.dev/trapframe/trapsim/cmd/util"
	"gvisor.dev/trapframe/trapsim/config"
)

// Features implements subcommands.Command for the "features" command.
type Features struct {
	format string
}

// Name implements subcommands.Command.Name.
func (*Features) Name() string {
	return "features"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Features) Synopsis() string {
	return "show the CPU features and the FP/SIMD enable bits derived from them"
}

// Usage implements subcommands.Command.Usage.
func (*Features) Usage() string {
	return `features [-o text|json] - show the feature set the simulated CPUs use.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (fe *Features) SetFlags(f *flag.FlagSet) {
	f.StringVar(&fe.format, "o", "text", "output format: text or json")
}

// featureReport is the json form of the features output.
type featureReport struct {
	Source   string   `json:"source"`
	HWCap    uint64   `json:"hwcap"`
	Features []string `json:"features"`
	CPACR    uint64   `json:"cpacr"`
	UserFP   bool     `json:"userFP"`
}

// Execute implements subcommands.Command.Execute.
func (fe *Features) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	if err := fe.write(&util.Writer{}, conf); err != nil {
		return util.Errorf("%v", err)
	}
	return subcommands.ExitSuccess
}

func (fe *Features) write(w io.Writer, conf *config.Config) error {
	fs, source := featureSet(conf)
	r := featureReport{
		Source: source,
		HWCap:  fs.HWCap(),
		CPACR:  ring0.FPEnableBits(fs, conf.UserFP, true),
		UserFP: conf.UserFP,
	}
	for _, feat := range fs.Features() {
		r.Features = append(r.Features, feat.String())
	}
	switch fe.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&r)
	case "text":
		_, err := fmt.Fprintf(w, "source:   %s\nhwcap:    %#x\nfeatures: %s\ncpacr:    %#x (user FP: %t)\n",
			r.Source, r.HWCap, fs, r.CPACR, r.UserFP)
		return err
	default:
		return fmt.Errorf("invalid output format %q, must be 'text' or 'json'", fe.format)
	}
}

// featureSet returns the feature set the simulated CPUs are brought up with,
// and where it came from.
func featureSet(conf *config.Config) (cpuid.FeatureSet, string) {
	if conf.HostFeatures {
		return cpuid.HostFeatureSet(), "host"
	}
	return cpuid.NewFeatureSet(cpuid.ARM64FeatureFP, cpuid.ARM64FeatureASIMD), "default"
}
