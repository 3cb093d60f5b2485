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

// Package hybrid wires the editor protocol endpoint and the WebSocket
// endpoint together behind a single shared notification bus and tool
// registry, and owns the lock file's lifecycle. It mirrors the original
// implementation's "hybrid" mode, where a stdio LSP session and a
// WebSocket bridge run concurrently against the same editor state so a
// selection made through either surface is visible to the other.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sengokudaikon/claude-code-zed/internal/dispatcher"
	"github.com/sengokudaikon/claude-code-zed/internal/editorprotocol"
	"github.com/sengokudaikon/claude-code-zed/internal/editorstate"
	"github.com/sengokudaikon/claude-code-zed/internal/ideconfig"
	"github.com/sengokudaikon/claude-code-zed/internal/lockfile"
	"github.com/sengokudaikon/claude-code-zed/internal/log"
	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
	"github.com/sengokudaikon/claude-code-zed/internal/serverconfig"
	"github.com/sengokudaikon/claude-code-zed/internal/toolregistry"
	"github.com/sengokudaikon/claude-code-zed/internal/wsserver"
)

// Options configures a Supervisor. WorkspaceRoots and IDEName feed both the
// lock file and the tool registry's getWorkspaceFolders answer; Port is the
// requested WebSocket port (0 for OS-assigned).
type Options struct {
	Port           int
	WorkspaceRoots []string
	IDEName        string
	Logger         *slog.Logger
}

// Supervisor owns the shared collaborators (editor state, notification bus,
// tool registry) and the two endpoints built on top of them.
type Supervisor struct {
	opts Options

	state    *editorstate.State
	bus      *notifbus.Bus
	registry *toolregistry.Registry
	cfg      *serverconfig.Config
	lockMgr  *lockfile.Manager

	endpoint *editorprotocol.Endpoint
	wsSrv    *wsserver.Server
}

// New assembles the shared collaborators and both endpoints, generating a
// fresh auth token and resolving the lock file directory. It does not bind
// a listener or write the lock file; call RunWebSocket, RunLSP, or RunHybrid
// for that.
func New(opts Options) (*Supervisor, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg, err := serverconfig.New(opts.Port, opts.WorkspaceRoots, opts.IDEName)
	if err != nil {
		return nil, fmt.Errorf("hybrid: generate server config: %w", err)
	}

	lockDir, err := ideconfig.LockDir()
	if err != nil {
		return nil, fmt.Errorf("hybrid: resolve lock directory: %w", err)
	}

	state := editorstate.New()
	state.SetWorkspaceFolders(workspaceFolders(opts.WorkspaceRoots))

	bus := notifbus.New(opts.Logger)

	registry := toolregistry.New()
	toolregistry.RegisterStandard(registry, &toolregistry.Deps{
		State:          state,
		WorkspaceRoots: opts.WorkspaceRoots,
	})

	d := dispatcher.New(registry)
	lockMgr := lockfile.NewManager(lockDir)

	endpoint := editorprotocol.New(state, bus, opts.WorkspaceRoots, opts.Logger.With(log.String("endpoint", "lsp")))
	wsSrv := wsserver.New(cfg, d, bus, lockMgr, opts.Logger.With(log.String("endpoint", "websocket")))

	return &Supervisor{
		opts:     opts,
		state:    state,
		bus:      bus,
		registry: registry,
		cfg:      cfg,
		lockMgr:  lockMgr,
		endpoint: endpoint,
		wsSrv:    wsSrv,
	}, nil
}

func workspaceFolders(roots []string) []editorstate.WorkspaceFolder {
	folders := make([]editorstate.WorkspaceFolder, 0, len(roots))
	for _, root := range roots {
		folders = append(folders, editorstate.WorkspaceFolder{Name: root, URI: "file://" + root, Path: root})
	}
	return folders
}

// RunLSP runs only the stdio editor protocol endpoint, reading from stdin
// and writing to stdout, until ctx is cancelled or the stream closes. No
// lock file is written: this mode has no port for another process to
// discover.
func (s *Supervisor) RunLSP(ctx context.Context) error {
	return s.endpoint.Serve(ctx, os.Stdin, os.Stdout)
}

// RunWebSocket binds the WebSocket endpoint, writes the lock file, and
// serves until ctx is cancelled. The lock file is removed on every exit
// path, including a startup failure after a partial bind.
func (s *Supervisor) RunWebSocket(ctx context.Context) error {
	ln, err := s.wsSrv.Listen()
	if err != nil {
		return fmt.Errorf("hybrid: %w", err)
	}

	if err := s.writeLockFile(); err != nil {
		_ = ln.Close()
		return err
	}
	defer s.removeLockFile()

	s.opts.Logger.Info("websocket endpoint listening", log.Int(log.PortKey, s.wsSrv.Port()))
	return s.wsSrv.Serve(ctx, ln)
}

// RunHybrid runs both endpoints concurrently against the shared state and
// bus, mirroring the original implementation's select over both tasks:
// RunHybrid returns as soon as either endpoint completes or errors, logging
// whichever one is left running at that point rather than waiting for it.
func (s *Supervisor) RunHybrid(ctx context.Context) error {
	ln, err := s.wsSrv.Listen()
	if err != nil {
		return fmt.Errorf("hybrid: %w", err)
	}

	if err := s.writeLockFile(); err != nil {
		_ = ln.Close()
		return err
	}
	defer s.removeLockFile()

	lspDone := make(chan error, 1)
	wsDone := make(chan error, 1)

	go func() {
		lspDone <- s.endpoint.Serve(ctx, os.Stdin, os.Stdout)
	}()
	go func() {
		s.opts.Logger.Info("websocket endpoint listening", log.Int(log.PortKey, s.wsSrv.Port()))
		wsDone <- s.wsSrv.Serve(ctx, ln)
	}()

	select {
	case err := <-lspDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.opts.Logger.Error("editor protocol endpoint exited", log.Error(err))
		} else {
			s.opts.Logger.Info("editor protocol endpoint completed")
		}
		return err
	case err := <-wsDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.opts.Logger.Error("websocket endpoint exited", log.Error(err))
		} else {
			s.opts.Logger.Info("websocket endpoint completed")
		}
		return err
	}
}

func (s *Supervisor) writeLockFile() error {
	lf := &lockfile.File{
		PID:              os.Getpid(),
		WorkspaceFolders: s.opts.WorkspaceRoots,
		IDEName:          s.opts.IDEName,
		Transport:        serverconfig.Transport,
		AuthToken:        s.cfg.AuthToken,
	}
	if err := s.lockMgr.Write(s.wsSrv.Port(), lf); err != nil {
		return fmt.Errorf("hybrid: write lock file: %w", err)
	}
	return nil
}

func (s *Supervisor) removeLockFile() {
	if err := s.lockMgr.Remove(s.wsSrv.Port()); err != nil {
		s.opts.Logger.Warn("failed to remove lock file", log.Error(err))
	}
}

// Port reports the WebSocket endpoint's bound port. Valid only after
// RunWebSocket or RunHybrid has bound the listener.
func (s *Supervisor) Port() int {
	return s.wsSrv.Port()
}

// AuthToken reports the generated WebSocket auth token, for callers (tests,
// diagnostics) that need to open a connection against this instance.
func (s *Supervisor) AuthToken() string {
	return s.cfg.AuthToken
}
