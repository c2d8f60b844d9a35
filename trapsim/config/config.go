// Copyright 2020 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for trapsim. Each setting that can be changed from the command line must
// be registered in flags.go.
package config

import (
	"fmt"

	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/log"
	"gvisor.dev/trapframe/pkg/ring0"
)

// Config holds configuration that is not part of a scenario file.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name
//  3. Register a new flag in flags.go, with same name and add a description
//  4. Add any necessary validation into validate()
//  5. If adding an enum, follow the same pattern as LogFormat
type Config struct {
	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// StackSize is the exception stack size of each simulated CPU. Zero
	// means one page.
	StackSize uint64 `flag:"stack-size"`

	// CPUs overrides the number of CPUs a scenario brings up, if not zero.
	CPUs int `flag:"cpus"`

	// UserFP enables FP/SIMD access from EL0 on the simulated CPUs.
	UserFP bool `flag:"user-fp"`

	// HostFeatures takes the CPU feature set from the host instead of
	// assuming FP and ASIMD are present.
	HostFeatures bool `flag:"host-features"`
}

// logFormats are the accepted values of LogFormat.
var logFormats = map[string]struct{}{
	"text":     {},
	"json":     {},
	"json-k8s": {},
}

func (c *Config) validate() error {
	if _, ok := logFormats[c.LogFormat]; !ok {
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.CPUs < 0 {
		return fmt.Errorf("cpus must be positive, got: %d", c.CPUs)
	}
	if c.StackSize != 0 {
		if c.StackSize < ring0.FrameSize {
			return fmt.Errorf("stack-size %d is smaller than one frame (%d bytes)", c.StackSize, ring0.FrameSize)
		}
		if !hostarch.Addr(c.StackSize).IsStackAligned() {
			return fmt.Errorf("stack-size %d is not a multiple of %d", c.StackSize, hostarch.StackAlignment)
		}
	}
	return nil
}

// Log logs the configuration.
func (c *Config) Log() {
	log.Infof("Config:")
	log.Infof("\t\tLog: %q (%s)", c.LogFilename, c.LogFormat)
	log.Infof("\t\tDebug: %t, AlsoLogToStderr: %t", c.Debug, c.AlsoLogToStderr)
	log.Infof("\t\tStackSize: %#x, CPUs: %d", c.StackSize, c.CPUs)
	log.Infof("\t\tUserFP: %t, HostFeatures: %t", c.UserFP, c.HostFeatures)
	log.Infof("\t\tNon-default flags: %v", c.ToFlags())
}
