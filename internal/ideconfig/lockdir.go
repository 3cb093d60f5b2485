// Copyright 2025 Tom Barlow
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

// Package ideconfig resolves the directory the lock file manager and the
// editor protocol endpoint use to locate per-user, per-editor state.
package ideconfig

import (
	"os"
	"path/filepath"
)

// lockDirEnvVar overrides the lock directory for tests, so a test run never
// touches a developer's real ~/.claude/ide.
const lockDirEnvVar = "CLAUDE_IDE_DIR"

// LockDir returns the directory lock files live in: ~/.claude/ide, or the
// value of CLAUDE_IDE_DIR when set. The directory is created (mode 0700) if
// it does not already exist.
func LockDir() (string, error) {
	var dir string

	if override := os.Getenv(lockDirEnvVar); override != "" {
		dir = override
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".claude", "ide")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	return dir, nil
}
