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

package editorprotocol

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sengokudaikon/claude-code-zed/internal/editorstate"
	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
)

func newTestEndpoint(t *testing.T) (*Endpoint, *editorstate.State, *notifbus.Bus) {
	t.Helper()
	state := editorstate.New()
	bus := notifbus.New(nil)
	return New(state, bus, []string{"/workspace"}, nil), state, bus
}

func TestHandle_Initialize_RecordsWorkspaceFolders(t *testing.T) {
	e, state, _ := newTestEndpoint(t)

	params, err := json.Marshal(map[string]interface{}{
		"workspaceFolders": []map[string]string{{"uri": "file:///repo", "name": "repo"}},
	})
	require.NoError(t, err)

	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`1`), "initialize", params))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	folders := state.WorkspaceFolders()
	require.Len(t, folders, 1)
	require.Equal(t, "/repo", folders[0].Path)
}

func TestHandle_Initialized_IsNotificationWithNoResponse(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	resp := e.handle(context.Background(), rpctypes.NewNotification("initialized", nil))
	require.Nil(t, resp)
	require.True(t, e.initialized.Load())
}

func TestHandle_Shutdown_SetsFlagAndReturnsNullResult(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`2`), "shutdown", nil))
	require.NotNil(t, resp)
	require.True(t, e.shutdown.Load())
}

func TestHandle_UnknownMethod_RequestGetsMethodNotFound(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`3`), "textDocument/bogus", nil))
	require.NotNil(t, resp)
	require.Equal(t, rpctypes.CodeMethodNotFound, resp.Error.Code)
}

func TestHandle_UnknownMethod_NotificationIsIgnored(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	resp := e.handle(context.Background(), rpctypes.NewNotification("textDocument/bogus", nil))
	require.Nil(t, resp)
}

func TestHandle_DidOpenThenDidClose_UpdatesTabs(t *testing.T) {
	e, state, _ := newTestEndpoint(t)

	openParams, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": "file:///a.go", "languageId": "go"},
	})
	e.handle(context.Background(), rpctypes.NewNotification("textDocument/didOpen", openParams))
	require.Len(t, state.OpenTabs(), 1)

	closeParams, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": "file:///a.go"},
	})
	e.handle(context.Background(), rpctypes.NewNotification("textDocument/didClose", closeParams))
	require.Len(t, state.OpenTabs(), 0)
}

func TestHandle_CodeAction_PublishesSelectionChanged(t *testing.T) {
	e, _, bus := newTestEndpoint(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	params, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": "file://" + path},
		"range": map[string]interface{}{
			"start": map[string]int{"line": 0, "character": 0},
			"end":   map[string]int{"line": 0, "character": 7},
		},
	})

	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`5`), "textDocument/codeAction", params))
	require.NotNil(t, resp)

	select {
	case n := <-sub.C:
		require.Equal(t, "selection_changed", n.Method)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(n.Params, &payload))
		require.Equal(t, "package", payload["text"])
	case <-time.After(time.Second):
		t.Fatal("expected selection_changed notification")
	}
}

func TestHandle_SelectionRange_PublishesOnePerPosition(t *testing.T) {
	e, _, bus := newTestEndpoint(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte("abcdef\n"), 0644))

	params, _ := json.Marshal(map[string]interface{}{
		"textDocument": map[string]string{"uri": "file://" + path},
		"positions": []map[string]int{
			{"line": 0, "character": 0},
			{"line": 0, "character": 2},
		},
	})

	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`6`), "textDocument/selectionRange", params))
	require.NotNil(t, resp)

	for i := 0; i < 2; i++ {
		select {
		case n := <-sub.C:
			require.Equal(t, "selection_changed", n.Method)
		case <-time.After(time.Second):
			t.Fatalf("expected notification %d", i)
		}
	}
}

func TestHandle_ExecuteCommand_AtMention_PublishesNotification(t *testing.T) {
	e, _, bus := newTestEndpoint(t)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	args, _ := json.Marshal(map[string]interface{}{"filePath": "/a.go", "lineStart": 1, "lineEnd": 3})
	params, _ := json.Marshal(map[string]interface{}{
		"command":   commandAtMention,
		"arguments": []json.RawMessage{args},
	})

	e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`7`), "workspace/executeCommand", params))

	select {
	case n := <-sub.C:
		require.Equal(t, "at_mentioned", n.Method)
	case <-time.After(time.Second):
		t.Fatal("expected at_mentioned notification")
	}
}

func TestHandle_ExecuteCommand_Explain_IsAcknowledgedNoOp(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	params, _ := json.Marshal(map[string]interface{}{"command": commandExplain})
	resp := e.handle(context.Background(), rpctypes.NewRequest(json.RawMessage(`8`), "workspace/executeCommand", params))
	require.NotNil(t, resp)
	require.Equal(t, json.RawMessage("null"), resp.Result)
}

func TestServe_StopsCleanlyOnEOF(t *testing.T) {
	e, _, _ := newTestEndpoint(t)
	var w bytes.Buffer
	err := e.Serve(context.Background(), bytes.NewReader(nil), &w)
	require.NoError(t, err)
}
