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

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/trapsim/cmd/util"
	"gvisor.dev/trapframe/trapsim/scenario"
)

// Convert implements subcommands.Command for the "convert" command.
type Convert struct {
	format string
	output string
}

// Name implements subcommands.Command.Name.
func (*Convert) Name() string {
	return "convert"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Convert) Synopsis() string {
	return "rewrite a scenario file in another format"
}

// Usage implements subcommands.Command.Usage.
func (*Convert) Usage() string {
	return `convert -to toml|yaml [-o <file>] <scenario file> - decode a scenario and
encode it again in the given format.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Convert) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "to", "", "format to convert to: toml or yaml; defaults to the format of -o")
	f.StringVar(&c.output, "o", "", "file to write to, stdout if empty")
}

// Execute implements subcommands.Command.Execute.
func (c *Convert) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	format, err := c.target()
	if err != nil {
		return util.Errorf("%v", err)
	}
	s, err := scenario.LoadFile(f.Arg(0))
	if err != nil {
		return util.Errorf("%v", err)
	}
	w, done, err := openOutput(c.output)
	if err != nil {
		return util.Errorf("%v", err)
	}
	if err := convert(w, s, format); err != nil {
		done()
		return util.Errorf("%v", err)
	}
	if err := done(); err != nil {
		return util.Errorf("writing scenario: %v", err)
	}
	if c.output != "" && c.output != "-" {
		util.Infof("Wrote scenario %q to %s as %s", s.Name, c.output, format)
	}
	return subcommands.ExitSuccess
}

// target returns the format to convert to.
func (c *Convert) target() (scenario.Format, error) {
	switch {
	case c.format != "":
		switch f := scenario.Format(c.format); f {
		case scenario.FormatTOML, scenario.FormatYAML:
			return f, nil
		}
		return "", fmt.Errorf("invalid format %q, must be 'toml' or 'yaml'", c.format)
	case c.output != "" && c.output != "-":
		return scenario.FormatOf(c.output)
	default:
		return "", fmt.Errorf("-to is required when writing to stdout")
	}
}

func convert(w io.Writer, s *scenario.Scenario, format scenario.Format) error {
	// Only scenarios that could be run are written.
	if err := s.Validate(s.NumCPUs()); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return scenario.Encode(w, s, format)
}
