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

package metric

import (
	"fmt"
	"io"
	"strings"
)

// PrometheusName returns the Prometheus name of a metric, e.g.
// "trapsim_traps" for "/trapsim/traps".
func PrometheusName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "/"), "/", "_")
}

// escapeHelp applies the Prometheus description escape rules: only
// backslashes and line breaks need escaping.
func escapeHelp(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\\", "\\\\"), "\n", "\\n")
}

// escapeLabel escapes a label value.
func escapeLabel(s string) string {
	return strings.ReplaceAll(escapeHelp(s), "\"", "\\\"")
}

// WritePrometheus writes all registered metrics to w in the Prometheus text
// exposition format, as counters. prefix is prepended to every name.
func WritePrometheus(w io.Writer, prefix string) error {
	for _, m := range registered() {
		name := prefix + PrometheusName(m.name)
		if m.description != "" {
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n", name, escapeHelp(m.description)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", name); err != nil {
			return err
		}
		for key := range m.fields {
			var labels string
			if values := m.fieldMapper.keyToMultiField(key); len(values) > 0 {
				pairs := make([]string, len(values))
				for i, v := range values {
					pairs[i] = fmt.Sprintf("%s=\"%s\"", m.fieldMapper.fields[i].name, escapeLabel(v))
				}
				labels = "{" + strings.Join(pairs, ",") + "}"
			}
			if _, err := fmt.Fprintf(w, "%s%s %d\n", name, labels, m.fields[key].Load()); err != nil {
				return err
			}
		}
	}
	return nil
}
