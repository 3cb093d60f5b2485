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

// Package wsserver implements the authenticated WebSocket endpoint: bind,
// handshake (subprotocol negotiation, custom-header authentication),
// per-connection JSON-RPC demultiplexing, notification fan-out from the
// shared bus, and keepalive eviction of unresponsive peers.
package wsserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sengokudaikon/claude-code-zed/internal/dispatcher"
	"github.com/sengokudaikon/claude-code-zed/internal/lockfile"
	"github.com/sengokudaikon/claude-code-zed/internal/log"
	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
	"github.com/sengokudaikon/claude-code-zed/internal/serverconfig"
)

// AuthHeader is the custom header the handshake authenticates against.
const AuthHeader = "x-claude-code-ide-authorization"

// mcpSubprotocol is the only subprotocol this endpoint ever echoes.
const mcpSubprotocol = "mcp"

// ProtocolVersion is the string advertised in the initialize response. The
// source cites two revisions across history (2024-11-05, 2025-03-26); this
// implementation always advertises the newer one rather than negotiating.
const ProtocolVersion = "2024-11-05"

// KeepaliveInterval is how often the keepalive sweep runs.
const KeepaliveInterval = 30 * time.Second

// KeepaliveTimeout is the pong staleness threshold past which a connection
// is evicted.
const KeepaliveTimeout = 60 * time.Second

// ErrBindFailed is returned when both the initial bind and the single
// cleanup-and-retry attempt fail.
var ErrBindFailed = errors.New("wsserver: failed to bind listener")

// Server is the WebSocket endpoint. One Server serves one port for the
// lifetime of the process.
type Server struct {
	cfg        *serverconfig.Config
	dispatcher *dispatcher.Dispatcher
	bus        *notifbus.Bus
	lockMgr    *lockfile.Manager
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*connection

	httpServer *http.Server
	listener   net.Listener
}

// New returns a Server. lockMgr may be nil if the caller never needs the
// bind-retry's stale-lock-file cleanup (e.g. in tests that bind an
// already-free port).
func New(cfg *serverconfig.Config, d *dispatcher.Dispatcher, bus *notifbus.Bus, lockMgr *lockfile.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		dispatcher:  d,
		bus:         bus,
		lockMgr:     lockMgr,
		logger:      logger,
		connections: make(map[string]*connection),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Listen binds 127.0.0.1:<cfg.Port>. If the port is already in use, it
// removes a possibly-stale lock file for that port, sleeps briefly, and
// retries exactly once before giving up. A cfg.Port of 0 requests an
// OS-assigned ephemeral port; Listen records the bound port back into cfg.
func (s *Server) Listen() (net.Listener, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil && s.cfg.Port != 0 {
		s.logger.Warn("bind failed, attempting cleanup and retry", log.Int(log.PortKey, s.cfg.Port), log.Error(err))

		if s.lockMgr != nil {
			if rmErr := s.lockMgr.Remove(s.cfg.Port); rmErr != nil {
				s.logger.Warn("failed to remove stale lock file during bind retry", log.Error(rmErr))
			}
		}
		time.Sleep(500 * time.Millisecond)

		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	s.listener = ln
	s.cfg.Port = ln.Addr().(*net.TCPAddr).Port
	return ln, nil
}

// Serve runs the HTTP server accepting WebSocket upgrades on ln and the
// keepalive sweep, blocking until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	keepaliveCtx, stopKeepalive := context.WithCancel(ctx)
	defer stopKeepalive()
	go s.keepaliveLoop(keepaliveCtx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		s.closeAll()
		return ctx.Err()
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Port reports the bound port, valid after Listen returns successfully.
func (s *Server) Port() int {
	return s.cfg.Port
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(AuthHeader)
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
		s.logger.Warn("websocket handshake rejected: bad auth token", "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var respHeader http.Header
	for _, proto := range websocket.Subprotocols(r) {
		if proto == mcpSubprotocol {
			respHeader = http.Header{"Sec-WebSocket-Protocol": []string{mcpSubprotocol}}
			break
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		s.logger.Error("websocket upgrade failed", log.Error(err), "remote", r.RemoteAddr)
		return
	}

	id := uuid.NewString()
	sub := s.bus.Subscribe()
	_, cancel := context.WithCancel(context.Background())
	c := newConnection(id, r.RemoteAddr, conn, sub, cancel)

	s.mu.Lock()
	s.connections[id] = c
	s.mu.Unlock()

	connLogger := log.WithConn(s.logger, id)
	connLogger.Info("websocket connection established", "remote", r.RemoteAddr)

	conn.SetPongHandler(func(string) error {
		c.touchPong()
		return nil
	})

	go s.outboundLoop(c, connLogger)
	s.inboundLoop(c, connLogger)
}

// inboundLoop owns reading from the socket; it returns once the socket is
// closed, errors, or a close frame is received.
func (s *Server) inboundLoop(c *connection, logger *slog.Logger) {
	defer s.removeConnection(c, logger)

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn("websocket read error", log.Error(err))
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.handleText(c, data, logger)
		case websocket.BinaryMessage:
			logger.Warn("ignoring binary frame")
		case websocket.CloseMessage:
			return
		}
	}
}

// outboundLoop forwards bus notifications to the peer until the
// subscription is closed (on disconnect) or a send fails.
func (s *Server) outboundLoop(c *connection, logger *slog.Logger) {
	for n := range c.sub.C {
		data, err := n.ToMessage().Marshal()
		if err != nil {
			logger.Warn("failed to encode notification", log.String(log.MethodKey, n.Method), log.Error(err))
			continue
		}
		if err := c.writeText(data); err != nil {
			logger.Warn("failed to forward notification, closing connection", log.Error(err))
			s.removeConnection(c, logger)
			return
		}
	}
}

func (s *Server) handleText(c *connection, data []byte, logger *slog.Logger) {
	msg, err := rpctypes.ParseMessage(data)
	if err != nil {
		resp := rpctypes.NewError(nil, rpctypes.CodeParseError, "Parse error", mustJSON(err.Error()))
		s.send(c, resp, logger)
		return
	}

	resp := s.route(c, msg, logger)
	if resp != nil {
		s.send(c, resp, logger)
	}
}

func (s *Server) send(c *connection, msg *rpctypes.Message, logger *slog.Logger) {
	data, err := msg.Marshal()
	if err != nil {
		logger.Error("failed to encode response", log.Error(err))
		return
	}
	if err := c.writeText(data); err != nil {
		logger.Warn("failed to send response", log.Error(err))
	}
}

// route dispatches one JSON-RPC message to its handler. It returns nil for
// notifications and for requests that carry no response payload.
func (s *Server) route(c *connection, msg *rpctypes.Message, logger *slog.Logger) *rpctypes.Message {
	methodLogger := log.WithMethod(logger, msg.Method)

	switch msg.Method {
	case "initialize":
		return rpctypes.NewResult(msg.ID, mustJSON(initializeEnvelope()))
	case "notifications/initialized":
		c.ready.Store(true)
		return nil
	case "tools/list":
		return rpctypes.NewResult(msg.ID, s.dispatcher.List())
	case "tools/call":
		result, toolErr := s.dispatcher.Call(context.Background(), msg.Params)
		if toolErr != nil {
			return rpctypes.NewError(msg.ID, toolErr.Code, toolErr.Message, toolErr.Data)
		}
		return rpctypes.NewResult(msg.ID, result)
	case "prompts/list":
		return rpctypes.NewResult(msg.ID, json.RawMessage(`{"prompts":[]}`))
	case "prompts/get":
		return rpctypes.NewResult(msg.ID, mustJSON(promptResult(msg.Params)))
	case "logging/setLevel":
		return rpctypes.NewResult(msg.ID, json.RawMessage(`{}`))
	case "selection_changed", "at_mentioned":
		// Peer-originated notifications about its own state; this server
		// only ever produces these, but tolerate receiving them too.
		return nil
	default:
		if msg.IsNotification() {
			methodLogger.Debug("ignoring unknown notification")
			return nil
		}
		return rpctypes.NewError(msg.ID, rpctypes.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

type promptGetParams struct {
	Name string `json:"name"`
}

func promptResult(params json.RawMessage) map[string]interface{} {
	var p promptGetParams
	_ = json.Unmarshal(params, &p)
	return map[string]interface{}{
		"description": fmt.Sprintf("Prompt: %s", p.Name),
		"messages":    []interface{}{},
	}
}

func initializeEnvelope() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{"listChanged": true},
			"prompts":   map[string]interface{}{"listChanged": false},
			"resources": map[string]interface{}{"listChanged": false},
			"logging":   map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "claude-code-server",
			"version": "0.1.0",
		},
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func (s *Server) removeConnection(c *connection, logger *slog.Logger) {
	s.mu.Lock()
	_, ok := s.connections[c.id]
	delete(s.connections, c.id)
	s.mu.Unlock()

	if ok {
		c.close()
		logger.Info("websocket connection closed")
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.connections = make(map[string]*connection)
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(time.Second))
		c.close()
	}
}

// keepaliveLoop evicts any connection whose last pong is older than
// KeepaliveTimeout, every KeepaliveInterval.
func (s *Server) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStale()
		}
	}
}

func (s *Server) sweepStale() {
	s.mu.RLock()
	stale := make([]*connection, 0)
	for _, c := range s.connections {
		if c.pongAge() > KeepaliveTimeout {
			stale = append(stale, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range stale {
		logger := log.WithConn(s.logger, c.id)
		logger.Warn("keepalive timeout, evicting connection")
		s.removeConnection(c, logger)
	}
}

// ConnectionCount reports the number of live connections, for diagnostics.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
