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
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/pkg/log"
	"gvisor.dev/trapframe/pkg/metric"
	"gvisor.dev/trapframe/pkg/ring0"
	"gvisor.dev/trapframe/trapsim/cmd/util"
	"gvisor.dev/trapframe/trapsim/config"
	"gvisor.dev/trapframe/trapsim/replay"
	"gvisor.dev/trapframe/trapsim/scenario"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	metrics string
	prefix  string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "replay a trap scenario on simulated CPUs"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario file> - bring up the scenario's CPUs, take every
trap in their streams and check that each one returns with the interrupted
registers intact.

The scenario may be TOML (.toml) or YAML (.yaml, .yml).
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.metrics, "metrics", "text", "how to print metrics after the run: text, prometheus or none")
	f.StringVar(&r.prefix, "metrics-prefix", "", "prefix for metric names in prometheus output")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	if err := r.run(ctx, conf, f.Arg(0), &util.Writer{}); err != nil {
		return util.Errorf("run failed: %v", err)
	}
	return subcommands.ExitSuccess
}

func (r *Run) run(ctx context.Context, conf *config.Config, path string, w io.Writer) error {
	switch r.metrics {
	case "text", "prometheus", "none":
	default:
		return fmt.Errorf("invalid metrics format %q, must be 'text', 'prometheus', or 'none'", r.metrics)
	}

	s, err := scenario.LoadFile(path)
	if err != nil {
		return err
	}
	cpus := s.NumCPUs()
	if conf.CPUs != 0 {
		cpus = conf.CPUs
	}
	if err := s.Validate(cpus); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	stackSize := conf.StackSize
	if stackSize == 0 {
		stackSize = s.StackSize
	}
	opts := kernelOpts(conf, stackSize)
	m, err := replay.NewMachine(opts, cpus)
	if err != nil {
		return err
	}
	if need := uint64(s.MaxDepth()) * ring0.FrameSize; need > m.Kernel.StackSize() {
		return fmt.Errorf("scenario %q nests %d deep, which needs %#x bytes of stack but CPUs have %#x", s.Name, s.MaxDepth(), need, m.Kernel.StackSize())
	}

	log.Infof("Running scenario %q on %d CPUs", s.Name, cpus)
	results, err := m.Run(ctx, s.Streams(cpus))
	if err != nil {
		return err
	}
	if err := writeResults(w, s.Name, results); err != nil {
		return err
	}

	switch r.metrics {
	case "text":
		for _, v := range metric.Values() {
			if _, err := fmt.Fprintln(w, v); err != nil {
				return err
			}
		}
	case "prometheus":
		return metric.WritePrometheus(w, r.prefix)
	}
	return nil
}

// kernelOpts returns the kernel options for conf, with the given stack size.
func kernelOpts(conf *config.Config, stackSize uint64) ring0.KernelOpts {
	fs, _ := featureSet(conf)
	return ring0.KernelOpts{
		Features:  fs,
		UserFP:    conf.UserFP,
		StackSize: stackSize,
	}
}

func writeResults(w io.Writer, name string, results []replay.Result) error {
	if _, err := fmt.Fprintf(w, "scenario %q: ok\n", name); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprint(tw, "CPU\tOFFSET\tTRAPS\tFAST\tFULL\tSYSCALLS\tEXCEPTIONS\tDEPTH\n")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%#x\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.CPU, r.Offset, r.Traps, r.Fast, r.Full, r.Syscalls, r.Exceptions, r.MaxDepth)
	}
	return tw.Flush()
}
