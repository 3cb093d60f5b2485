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

// Package dispatcher resolves an incoming tools/call into a toolregistry
// entry and produces the JSON-RPC result or error the WebSocket endpoint
// writes back to its peer. It is kept separate from toolregistry.Registry
// so storage (the read-only mapping) and dispatch (the stateless call path)
// do not conflate, per the source's notes on keeping these concerns apart.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
	"github.com/sengokudaikon/claude-code-zed/internal/toolregistry"
)

// Dispatcher holds the one collaborator it needs: the populated registry.
type Dispatcher struct {
	registry *toolregistry.Registry
}

// New returns a Dispatcher bound to registry.
func New(registry *toolregistry.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// callParams is the shape of tools/call's params object.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Call extracts name/arguments from a tools/call params payload, invokes the
// registry, and returns either the marshaled result or a ToolError. It does
// not itself validate arguments against a tool's input schema — it trusts
// handlers to return InvalidParams when fields are missing or malformed.
func (d *Dispatcher) Call(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpctypes.ToolError) {
	var p callParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpctypes.InvalidParams(fmt.Sprintf("malformed tools/call params: %v", err))
		}
	}
	if p.Name == "" {
		return nil, rpctypes.InvalidParams("missing tool name")
	}

	result, toolErr := d.registry.Call(ctx, p.Name, p.Arguments)
	if toolErr != nil {
		return nil, toolErr
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, rpctypes.InternalError(fmt.Sprintf("failed to encode tool result: %v", err))
	}
	return data, nil
}

// List returns the {tools: [...]} payload for tools/list.
func (d *Dispatcher) List() json.RawMessage {
	data, err := json.Marshal(map[string]interface{}{"tools": d.registry.List()})
	if err != nil {
		return json.RawMessage(`{"tools":[]}`)
	}
	return data
}
