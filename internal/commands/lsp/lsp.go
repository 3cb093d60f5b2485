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

// Package lsp implements the "lsp" subcommand: the stdio editor protocol
// endpoint only, with no WebSocket listener and no lock file, for editors
// that spawn the server directly as a child process.
package lsp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sengokudaikon/claude-code-zed/internal/commands/serverflags"
	"github.com/sengokudaikon/claude-code-zed/internal/hybrid"
	"github.com/sengokudaikon/claude-code-zed/internal/log"
)

// NewCommand creates the "lsp" subcommand.
func NewCommand(rootFlags *serverflags.RootFlags) *cobra.Command {
	var worktree string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the editor protocol endpoint only, over stdio",
		Long: `Runs only the stdio editor protocol endpoint: length-prefixed JSON-RPC
on stdin/stdout. No WebSocket listener is bound and no lock file is written,
since this mode has no port for the assistant to discover.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, rootFlags, worktree)
		},
	}

	cmd.Flags().StringVar(&worktree, "worktree", "", "Worktree root path")

	return cmd
}

// Run builds a Supervisor and serves only the stdio editor protocol
// endpoint until interrupted or the stream closes.
func Run(cmd *cobra.Command, rootFlags *serverflags.RootFlags, worktree string) error {
	resolved := serverflags.ResolveWorktree(rootFlags, worktree)

	logCfg := log.FromEnv()
	if rootFlags != nil && rootFlags.Debug {
		logCfg.Level = "debug"
		logCfg.AddSource = true
	}
	logCfg.Output = os.Stderr
	logger := log.New(logCfg)

	sup, err := hybrid.New(hybrid.Options{
		WorkspaceRoots: serverflags.WorkspaceRoots(resolved),
		IDEName:        serverflags.DefaultIDEName,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("lsp: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return sup.RunLSP(ctx)
}
