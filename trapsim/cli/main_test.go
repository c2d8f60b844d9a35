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

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/trapframe/pkg/log"
)

func TestLogFileOpts(t *testing.T) {
	start := time.Date(2024, time.March, 5, 14, 7, 9, 123456000, time.UTC)
	opts := logFileOpts{command: "run", start: start}
	for _, tc := range []struct {
		pattern string
		want    string
	}{
		{pattern: "/tmp/trapsim.log", want: "/tmp/trapsim.log"},
		{pattern: "/tmp/%COMMAND%.log", want: "/tmp/run.log"},
		{pattern: "/tmp/%TIMESTAMP%/%COMMAND%", want: "/tmp/20240305-140709.123456/run"},
		{pattern: "/tmp/%PID%.log", want: fmt.Sprintf("/tmp/%d.log", os.Getpid())},
	} {
		t.Run(tc.pattern, func(t *testing.T) {
			if got := opts.Build(tc.pattern); got != tc.want {
				t.Errorf("Build(%q) = %q, want %q", tc.pattern, got, tc.want)
			}
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "%COMMAND%", "trapsim.log")
	f, err := log.OpenFile(pattern, os.O_WRONLY|os.O_CREATE|os.O_APPEND, logFileOpts{command: "offsets"})
	if err != nil {
		t.Fatalf("OpenFile(%q) failed: %v", pattern, err)
	}
	defer f.Close()
	if want := filepath.Join(dir, "offsets", "trapsim.log"); f.Name() != want {
		t.Errorf("OpenFile(%q) opened %q, want %q", pattern, f.Name(), want)
	}
}

func TestNewEmitter(t *testing.T) {
	for _, format := range []string{"text", "json", "json-k8s"} {
		if e := newEmitter(format, os.Stderr); e == nil {
			t.Errorf("newEmitter(%q) = nil", format)
		}
	}
}

func TestForEachCmd(t *testing.T) {
	got := make(map[string]string)
	forEachCmd(func(c subcommands.Command, group string) {
		got[c.Name()] = group
	})
	for name, group := range map[string]string{
		"help":     "",
		"flags":    "",
		"commands": "",
		"run":      "",
		"convert":  "",
		"offsets":  "debug",
		"features": "debug",
	} {
		if g, ok := got[name]; !ok || g != group {
			t.Errorf("command %q registered in group %q (found: %t), want %q", name, g, ok, group)
		}
	}
}
