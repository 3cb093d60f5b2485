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

// Package servercli assembles the claude-code-server root command: the
// persistent --debug/--worktree flags and the lsp/websocket/hybrid
// subcommands, plus the no-subcommand default behavior the original
// implementation used (worktree given -> lsp, otherwise -> hybrid).
package servercli

import (
	"github.com/spf13/cobra"

	"github.com/sengokudaikon/claude-code-zed/internal/commands/hybrid"
	"github.com/sengokudaikon/claude-code-zed/internal/commands/lsp"
	"github.com/sengokudaikon/claude-code-zed/internal/commands/serverflags"
	"github.com/sengokudaikon/claude-code-zed/internal/commands/websocket"
)

// NewRootCommand creates the root Cobra command for claude-code-server.
func NewRootCommand() *cobra.Command {
	rootFlags := &serverflags.RootFlags{}

	cmd := &cobra.Command{
		Use:   "claude-code-server",
		Short: "Claude Code Server - WebSocket and LSP server for editor integration",
		Long: `Claude Code Server bridges an editor's selection and diagnostic state to
the Claude Code CLI, over a WebSocket connection authenticated by a token
published in a lock file, and/or over a stdio editor protocol session for
editors that spawn it directly as a child process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootFlags.Worktree != "" {
				return lspDefault(cmd, rootFlags)
			}
			return hybrid.Run(cmd, rootFlags, 0, rootFlags.Worktree)
		},
	}

	cmd.PersistentFlags().BoolVarP(&rootFlags.Debug, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&rootFlags.Worktree, "worktree", "", "Worktree root path (for LSP mode)")

	cmd.AddCommand(lsp.NewCommand(rootFlags))
	cmd.AddCommand(websocket.NewCommand(rootFlags))
	cmd.AddCommand(hybrid.NewCommand(rootFlags))

	return cmd
}

func lspDefault(cmd *cobra.Command, rootFlags *serverflags.RootFlags) error {
	lspCmd := lsp.NewCommand(rootFlags)
	return lspCmd.RunE(lspCmd, nil)
}
