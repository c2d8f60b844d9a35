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

// Package cli is the main entrypoint for trapsim.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/pkg/hostarch"
	"gvisor.dev/trapframe/pkg/log"
	"gvisor.dev/trapframe/pkg/metric"
	"gvisor.dev/trapframe/trapsim/cmd"
	"gvisor.dev/trapframe/trapsim/cmd/util"
	"gvisor.dev/trapframe/trapsim/config"
)

// versionFlagName is the name of a flag that triggers printing the version.
const versionFlagName = "version"

// version is set at link time.
var version = "dev"

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// Register with the main command line.
	config.RegisterFlags(flag.CommandLine)
	flag.Bool(versionFlagName, false, "show version and exit.")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	// Are we showing the version?
	if flag.Lookup(versionFlagName).Value.(flag.Getter).Get().(bool) {
		fmt.Fprintf(os.Stdout, "trapsim version %s\n", version)
		os.Exit(0)
	}

	// Create a new Config from the flags.
	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		util.Fatalf("%v", err)
	}

	subcommand := flag.CommandLine.Arg(0)
	startTime := time.Now()

	var emitters log.MultiEmitter
	if conf.LogFilename != "" {
		// O_APPEND so that several commands can share one log file.
		f, err := log.OpenFile(conf.LogFilename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, logFileOpts{
			command: subcommand,
			start:   startTime,
		})
		if err != nil {
			util.Fatalf("error opening log file %q: %v", conf.LogFilename, err)
		}
		util.ErrorLogger = f
		emitters = append(emitters, newEmitter(conf.LogFormat, f))
		if conf.AlsoLogToStderr {
			emitters = append(emitters, newEmitter(conf.LogFormat, os.Stderr))
		}
	} else {
		emitters = append(emitters, newEmitter(conf.LogFormat, os.Stderr))
	}
	switch len(emitters) {
	case 1:
		log.SetTarget(emitters[0])
	default:
		log.SetTarget(&emitters)
	}
	if conf.Debug {
		log.SetLevel(log.Debug)
	}

	const delimString = `**************** trapsim ****************`
	log.Infof(delimString)
	log.Infof("Version %s, %s, %s, %d CPUs, %s, PID %d", version, runtime.Version(), runtime.GOARCH, runtime.NumCPU(), runtime.GOOS, os.Getpid())
	log.Debugf("Host page size: 0x%x (%d bytes), guest page size: 0x%x", hostarch.HostPageSize(), hostarch.HostPageSize(), hostarch.PageSize)
	log.Infof("Args: %v", os.Args)
	conf.Log()
	log.Infof(delimString)

	// Every metric is created at package init.
	if err := metric.Initialize(); err != nil {
		util.Fatalf("initializing metrics: %v", err)
	}

	// Call the subcommand and pass in the configuration.
	subcmdCode := subcommands.Execute(context.Background(), conf)
	if subcmdCode == subcommands.ExitSuccess {
		log.Infof("Exiting with status: %v", subcmdCode)
		os.Exit(0)
	}
	log.Warningf("Failure to execute command, err: %v", subcmdCode)
	os.Exit(int(subcmdCode))
}

// forEachCmd invokes the passed callback for each command supported by
// trapsim.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(subcommands.CommandsCommand(), "")

	cb(new(cmd.Run), "")
	cb(new(cmd.Convert), "")

	const debugGroup = "debug"
	cb(new(cmd.Offsets), debugGroup)
	cb(new(cmd.Features), debugGroup)
}

func newEmitter(format string, logFile io.Writer) log.Emitter {
	switch format {
	case "text":
		return log.GoogleEmitter{Emitter: &log.Writer{Next: logFile}}
	case "json":
		return log.JSONEmitter{Writer: &log.Writer{Next: logFile}}
	case "json-k8s":
		return log.K8sJSONEmitter{Writer: &log.Writer{Next: logFile}}
	}
	util.Fatalf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", format)
	panic("unreachable")
}

// logFileOpts expands the variables of a --log pattern:
//
//	%COMMAND%   is replaced with the subcommand name.
//	%TIMESTAMP% is replaced with the start time.
//	%PID%       is replaced with the process ID.
type logFileOpts struct {
	command string
	start   time.Time
}

// Build implements log.FileOpts.Build.
func (o logFileOpts) Build(logPattern string) string {
	return strings.NewReplacer(
		"%COMMAND%", o.command,
		"%TIMESTAMP%", o.start.Format("20060102-150405.000000"),
		"%PID%", fmt.Sprint(os.Getpid()),
	).Replace(logPattern)
}
