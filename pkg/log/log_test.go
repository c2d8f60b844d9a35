// Copyright 2018 The gVisor Authors.
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

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	want := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestAppendsNewline(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	want := []string{"no newline", "\n"}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestLevels(t *testing.T) {
	tw := &testWriter{}
	l := BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warningf("warning %d", 3)

	want := []string{"info 2", "\n", "warning 3", "\n"}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}

	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false after SetLevel(Debug)")
	}
}

func TestGoogleEmitterHeader(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2024, time.March, 7, 9, 8, 7, 123456000, time.UTC)
	e.Emit(0, Warning, ts, "cpu %d trapped", 3)

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(tw.lines), tw.lines)
	}
	line := tw.lines[0]
	if !strings.HasPrefix(line, "W0307 09:08:07.123456 ") {
		t.Errorf("line %q has unexpected header", line)
	}
	if !strings.Contains(line, "log_test.go:") {
		t.Errorf("line %q does not name the caller", line)
	}
	if !strings.HasSuffix(line, "] cpu 3 trapped\n") {
		t.Errorf("line %q has unexpected message", line)
	}
}

func TestMultiEmitter(t *testing.T) {
	a, b := &testWriter{}, &testWriter{}
	m := MultiEmitter{&Writer{Next: a}, &Writer{Next: b}}
	m.Emit(0, Info, time.Now(), "hello")
	for i, tw := range []*testWriter{a, b} {
		if diff := cmp.Diff([]string{"hello", "\n"}, tw.lines); diff != "" {
			t.Errorf("emitter %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	l := RateLimitedLogger(&BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 5; i++ {
		l.Warningf("unhandled %d", i)
	}
	if diff := cmp.Diff([]string{"unhandled 0", "\n"}, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}

	// Debug messages are below the logger's level and use up nothing.
	l.Debugf("ignored")

	rl := l.(*rateLimitedLogger)
	rl.limit.SetLimit(rate.Inf)
	l.Warningf("unhandled %d", 5)
	l.Warningf("unhandled %d", 6)
	want := []string{
		"unhandled 0", "\n",
		"unhandled 5 (4 similar messages dropped)", "\n",
		"unhandled 6", "\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("unexpected lines after lifting the limit (-want +got):\n%s", diff)
	}
}

type emptyPath struct{}

func (emptyPath) Build(string) string { return "" }

func TestOpenFile(t *testing.T) {
	if f, err := OpenFile("", os.O_WRONLY, nil); f != nil || err != nil {
		t.Errorf(`OpenFile("") = %v, %v, want nil, nil`, f, err)
	}
	if _, err := OpenFile("x.log", os.O_WRONLY, emptyPath{}); err == nil {
		t.Errorf("OpenFile with an empty expansion succeeded, want error")
	}

	path := filepath.Join(t.TempDir(), "a", "b", "trapsim.log")
	f, err := OpenFile(path, os.O_WRONLY|os.O_CREATE, nil)
	if err != nil {
		t.Fatalf("OpenFile(%q) failed: %v", path, err)
	}
	defer f.Close()
	if f.Name() != path {
		t.Errorf("OpenFile(%q) opened %q", path, f.Name())
	}
}
