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

package log

import (
	"log/slog"
	"time"
)

// DispatchRequest describes a single JSON-RPC method dispatch for logging
// purposes, whether it arrived over the WebSocket endpoint or the stdio
// editor protocol endpoint.
type DispatchRequest struct {
	// Method is the JSON-RPC method name (e.g. "tools/call").
	Method string

	// ConnID identifies the connection the request arrived on. Empty for
	// the stdio endpoint, which has exactly one peer.
	ConnID string

	// Tool is the tool name for tools/call dispatches; empty otherwise.
	Tool string

	// IsNotification is true when the request carried no id.
	IsNotification bool
}

// DispatchResult describes the outcome of a dispatch for logging purposes.
type DispatchResult struct {
	// Success indicates the handler returned no error.
	Success bool

	// Error is the error message if the dispatch failed.
	Error string

	// DurationMs is how long the dispatch took.
	DurationMs int64
}

// LogDispatchRequest logs an incoming JSON-RPC dispatch.
func LogDispatchRequest(logger *slog.Logger, req *DispatchRequest) {
	attrs := []any{
		MethodKey, req.Method,
	}
	if req.ConnID != "" {
		attrs = append(attrs, ConnIDKey, req.ConnID)
	}
	if req.Tool != "" {
		attrs = append(attrs, ToolKey, req.Tool)
	}
	if req.IsNotification {
		attrs = append(attrs, "notification", true)
	}

	logger.Debug("dispatching rpc method", attrs...)
}

// LogDispatchResult logs the outcome of a JSON-RPC dispatch.
func LogDispatchResult(logger *slog.Logger, req *DispatchRequest, res *DispatchResult) {
	attrs := []any{
		MethodKey, req.Method,
		DurationKey, res.DurationMs,
	}
	if req.ConnID != "" {
		attrs = append(attrs, ConnIDKey, req.ConnID)
	}
	if req.Tool != "" {
		attrs = append(attrs, ToolKey, req.Tool)
	}
	if res.Error != "" {
		attrs = append(attrs, "error", res.Error)
	}

	level := slog.LevelDebug
	message := "rpc method completed"
	if !res.Success {
		level = slog.LevelWarn
		message = "rpc method failed"
	}

	logger.Log(nil, level, message, attrs...)
}

// DispatchMiddleware wraps tool and method dispatch with request/response
// logging and duration timing, used by the WebSocket and editor protocol
// endpoints so every dispatch is observable without each call site
// duplicating the timing boilerplate.
type DispatchMiddleware struct {
	logger *slog.Logger
}

// NewDispatchMiddleware creates a new dispatch logging middleware.
func NewDispatchMiddleware(logger *slog.Logger) *DispatchMiddleware {
	return &DispatchMiddleware{logger: logger}
}

// Wrap runs handler, logging the request before and the outcome (with
// duration) after.
func (m *DispatchMiddleware) Wrap(req *DispatchRequest, handler func() error) error {
	start := time.Now()

	LogDispatchRequest(m.logger, req)

	err := handler()

	res := &DispatchResult{
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
	}

	LogDispatchResult(m.logger, req, res)

	return err
}
