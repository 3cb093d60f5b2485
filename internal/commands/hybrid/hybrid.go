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

// Package hybrid implements the "hybrid" subcommand (and the no-subcommand
// default): both the stdio editor protocol endpoint and the WebSocket
// endpoint, joined by a shared notification bus, matching the original
// implementation's default run mode.
package hybrid

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sengokudaikon/claude-code-zed/internal/commands/serverflags"
	hybridsrv "github.com/sengokudaikon/claude-code-zed/internal/hybrid"
	"github.com/sengokudaikon/claude-code-zed/internal/log"
)

// NewCommand creates the "hybrid" subcommand.
func NewCommand(rootFlags *serverflags.RootFlags) *cobra.Command {
	var (
		port     int
		worktree string
	)

	cmd := &cobra.Command{
		Use:   "hybrid",
		Short: "Run both the editor protocol and WebSocket endpoints",
		Long: `Runs the stdio editor protocol endpoint and the WebSocket endpoint
concurrently, sharing one notification bus: a selection made through either
surface is visible to the other. This is the default mode when no
subcommand and no --worktree flag are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, rootFlags, port, worktree)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "WebSocket port to listen on (0 for OS-assigned)")
	cmd.Flags().StringVar(&worktree, "worktree", "", "Worktree root path")

	return cmd
}

// Run builds a Supervisor and serves both endpoints until interrupted or
// one of them exits.
func Run(cmd *cobra.Command, rootFlags *serverflags.RootFlags, port int, worktree string) error {
	resolved := serverflags.ResolveWorktree(rootFlags, worktree)

	logCfg := log.FromEnv()
	if rootFlags != nil && rootFlags.Debug {
		logCfg.Level = "debug"
		logCfg.AddSource = true
	}
	logger := log.New(logCfg)

	sup, err := hybridsrv.New(hybridsrv.Options{
		Port:           port,
		WorkspaceRoots: serverflags.WorkspaceRoots(resolved),
		IDEName:        serverflags.DefaultIDEName,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("hybrid: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return sup.RunHybrid(ctx)
}
