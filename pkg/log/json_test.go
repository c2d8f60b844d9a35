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
package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLevelJSON(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: `"warning"`, want: Warning},
		{in: `"info"`, want: Info},
		{in: `"debug"`, want: Debug},
		{in: `0`, want: Warning},
		{in: `1`, want: Info},
		{in: `2`, want: Debug},
		{in: `3`, wantErr: true},
		{in: `"fatal"`, wantErr: true},
		{in: `true`, wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			var got Level
			err := json.Unmarshal([]byte(tc.in), &got)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %t", tc.in, err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
	if _, err := json.Marshal(Level(7)); err == nil {
		t.Errorf("Marshal(Level(7)) succeeded, want error")
	}
}

func TestJSONEmitters(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 8, 7, 0, time.UTC)
	for _, tc := range []struct {
		name string
		emit func(w *Writer)
		key  string
	}{
		{
			name: "json",
			emit: func(w *Writer) { JSONEmitter{w}.Emit(0, Warning, ts, "cpu %d trapped", 2) },
			key:  "msg",
		},
		{
			name: "json-k8s",
			emit: func(w *Writer) { K8sJSONEmitter{w}.Emit(0, Warning, ts, "cpu %d trapped", 2) },
			key:  "log",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tw := &testWriter{}
			tc.emit(&Writer{Next: tw})
			if len(tw.lines) == 0 {
				t.Fatalf("nothing written")
			}
			var got map[string]any
			if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
				t.Fatalf("Unmarshal(%q) failed: %v", tw.lines[0], err)
			}
			msg, _ := got[tc.key].(string)
			if !strings.HasPrefix(msg, "json_test.go:") || !strings.HasSuffix(msg, "] cpu 2 trapped") {
				t.Errorf("%s = %q, want caller and message", tc.key, msg)
			}
			delete(got, tc.key)
			want := map[string]any{
				"level": "warning",
				"time":  "2024-03-07T09:08:07Z",
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("other fields (-want +got):\n%s", diff)
			}
		})
	}
}
