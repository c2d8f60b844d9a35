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
	"fmt"
	"os"
	"path/filepath"
)

// FileOpts expands the variables of a log file pattern.
type FileOpts interface {
	// Build returns the log file path for logPattern.
	Build(logPattern string) string
}

// OpenFile opens the log file named by logPattern, as expanded by opts, and
// creates its directory if needed. A nil opts uses the pattern as is. An
// empty pattern opens nothing and returns a nil file.
func OpenFile(logPattern string, flags int, opts FileOpts) (*os.File, error) {
	if logPattern == "" {
		return nil, nil
	}
	logPath := logPattern
	if opts != nil {
		logPath = opts.Build(logPattern)
	}
	if logPath == "" {
		return nil, fmt.Errorf("log file pattern %q expands to an empty path", logPattern)
	}

	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(logPath, flags, 0664)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", logPath, err)
	}
	return f, nil
}
