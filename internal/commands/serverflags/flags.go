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

// Package serverflags holds the root flag values shared across the
// claude-code-server subcommands, mirroring the original implementation's
// top-level clap flags (--debug, --worktree) that apply regardless of
// which subcommand runs.
package serverflags

// DefaultIDEName is the display name recorded in the lock file and
// returned from getWorkspaceFolders, matching the original extension's
// hard-coded "Zed" identifier.
const DefaultIDEName = "Zed"

// RootFlags holds the persistent flags set on the root command, read by
// every subcommand.
type RootFlags struct {
	// Debug raises the log level to debug and enables source logging.
	Debug bool

	// Worktree overrides the workspace root. When set at the root level
	// it takes precedence over a subcommand's own --worktree flag.
	Worktree string
}

// ResolveWorktree returns the effective worktree path: the root flag if
// set, otherwise the subcommand-local value.
func ResolveWorktree(root *RootFlags, local string) string {
	if root != nil && root.Worktree != "" {
		return root.Worktree
	}
	return local
}

// WorkspaceRoots returns the single-element workspace roots slice for a
// resolved worktree path, or an empty slice if none was given.
func WorkspaceRoots(worktree string) []string {
	if worktree == "" {
		return nil
	}
	return []string{worktree}
}
