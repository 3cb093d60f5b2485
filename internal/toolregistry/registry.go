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

// Package toolregistry holds the named mapping from tool identifier to
// schema descriptor and handler that the WebSocket endpoint's dispatcher
// calls into on tools/call. It is populated once at startup and read by any
// number of connection goroutines afterward without further locking.
package toolregistry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
)

// Handler executes a tool call. It must not mutate the registry it was
// looked up from.
type Handler func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError)

type entry struct {
	tool    mcp.Tool
	handler Handler
}

// Registry is a name-keyed mapping of tool descriptors to handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces the tool under tool.Name. Re-registering an
// existing name overwrites its previous descriptor and handler.
func (r *Registry) Register(tool mcp.Tool, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tool.Name] = entry{tool: tool, handler: handler}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// List returns every registered tool descriptor. Order is not significant;
// callers that need determinism should sort by Name.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.tool)
	}
	return out
}

// Call invokes the handler registered under name. An unknown name yields
// ToolError::NotFound without invoking anything.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, rpctypes.NotFound(name)
	}
	return e.handler(ctx, args)
}
