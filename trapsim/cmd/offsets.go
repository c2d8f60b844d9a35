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
	"io"

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/pkg/ring0"
	"gvisor.dev/trapframe/trapsim/cmd/util"
)

// Offsets implements subcommands.Command for the "offsets" command.
type Offsets struct {
	output string
}

// Name implements subcommands.Command.Name.
func (*Offsets) Name() string {
	return "offsets"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Offsets) Synopsis() string {
	return "print the frame and CPU offsets used by the exception vectors"
}

// Usage implements subcommands.Command.Usage.
func (*Offsets) Usage() string {
	return `offsets [-o <file>] - write assembler #defines for the CPU structure,
the saved frame and the ptrace register layout.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (o *Offsets) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.output, "o", "", "file to write to, stdout if empty")
}

// Execute implements subcommands.Command.Execute.
func (o *Offsets) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	w, done, err := openOutput(o.output)
	if err != nil {
		return util.Errorf("%v", err)
	}
	o.write(w)
	if err := done(); err != nil {
		return util.Errorf("writing offsets: %v", err)
	}
	return subcommands.ExitSuccess
}

func (o *Offsets) write(w io.Writer) {
	ring0.Emit(w)
}
