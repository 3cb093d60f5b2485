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

// Package websocket implements the "websocket" subcommand: the WebSocket
// endpoint only, with its lock file, but no stdio editor protocol session.
package websocket

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

// NewCommand creates the "websocket" subcommand.
func NewCommand(rootFlags *serverflags.RootFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "websocket",
		Short: "Run the WebSocket endpoint only",
		Long: `Runs only the authenticated WebSocket endpoint and writes the lock file
assistants use for service discovery. No stdio editor protocol session is
started; selection and at-mention notifications never fire since nothing
feeds the notification bus in this mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, rootFlags, port, rootFlags.Worktree)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (0 for OS-assigned)")

	return cmd
}

// Run builds a Supervisor and serves only the WebSocket endpoint until
// interrupted.
func Run(cmd *cobra.Command, rootFlags *serverflags.RootFlags, port int, worktree string) error {
	resolved := serverflags.ResolveWorktree(rootFlags, worktree)

	logCfg := log.FromEnv()
	if rootFlags != nil && rootFlags.Debug {
		logCfg.Level = "debug"
		logCfg.AddSource = true
	}
	logger := log.New(logCfg)

	sup, err := hybrid.New(hybrid.Options{
		Port:           port,
		WorkspaceRoots: serverflags.WorkspaceRoots(resolved),
		IDEName:        serverflags.DefaultIDEName,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("websocket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return sup.RunWebSocket(ctx)
}
