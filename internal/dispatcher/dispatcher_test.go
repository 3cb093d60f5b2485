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

package dispatcher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
	"github.com/sengokudaikon/claude-code-zed/internal/toolregistry"
)

func newTestDispatcher() *Dispatcher {
	r := toolregistry.New()
	r.Register(mcp.Tool{Name: "echo"}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, rpctypes.InvalidParams(err.Error())
		}
		return mcp.NewToolResultText(a.Message), nil
	})
	return New(r)
}

func TestCall_InvokesRegisteredTool(t *testing.T) {
	d := newTestDispatcher()

	params, _ := json.Marshal(map[string]interface{}{
		"name":      "echo",
		"arguments": map[string]string{"message": "hi"},
	})

	result, toolErr := d.Call(context.Background(), params)
	require.Nil(t, toolErr)
	require.Contains(t, string(result), "hi")
}

func TestCall_UnknownTool_ReturnsNotFound(t *testing.T) {
	d := newTestDispatcher()

	params, _ := json.Marshal(map[string]interface{}{"name": "bogus"})
	_, toolErr := d.Call(context.Background(), params)
	require.NotNil(t, toolErr)
	require.Equal(t, rpctypes.CodeMethodNotFound, toolErr.Code)
}

func TestCall_MissingName_ReturnsInvalidParams(t *testing.T) {
	d := newTestDispatcher()

	_, toolErr := d.Call(context.Background(), json.RawMessage(`{}`))
	require.NotNil(t, toolErr)
	require.Equal(t, rpctypes.CodeInvalidParams, toolErr.Code)
}

func TestCall_MalformedParams_ReturnsInvalidParams(t *testing.T) {
	d := newTestDispatcher()

	_, toolErr := d.Call(context.Background(), json.RawMessage(`not json`))
	require.NotNil(t, toolErr)
	require.Equal(t, rpctypes.CodeInvalidParams, toolErr.Code)
}

func TestList_ReturnsToolsEnvelope(t *testing.T) {
	d := newTestDispatcher()

	var out struct {
		Tools []mcp.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(d.List(), &out))
	require.Len(t, out.Tools, 1)
	require.Equal(t, "echo", out.Tools[0].Name)
}
