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

package wsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/sengokudaikon/claude-code-zed/internal/dispatcher"
	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
	"github.com/sengokudaikon/claude-code-zed/internal/serverconfig"
	"github.com/sengokudaikon/claude-code-zed/internal/toolregistry"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *serverconfig.Config) {
	t.Helper()

	cfg := &serverconfig.Config{AuthToken: "test-token", Transport: serverconfig.Transport}

	r := toolregistry.New()
	r.Register(mcp.Tool{Name: "echo"}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		return mcp.NewToolResultText("pong"), nil
	})

	logger := slog.New(slog.NewTextHandler(nopWriter{}, nil))
	s := New(cfg, dispatcher.New(r), notifbus.New(logger), nil, logger)

	httpSrv := httptest.NewServer(http.HandlerFunc(s.handleUpgrade))
	t.Cleanup(httpSrv.Close)

	return s, httpSrv, cfg
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func dialOpts(url, token string, protocols []string) (*websocket.Dialer, http.Header) {
	d := &websocket.Dialer{Subprotocols: protocols}
	h := http.Header{}
	if token != "" {
		h.Set(AuthHeader, token)
	}
	return d, h
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestHandleUpgrade_RejectsMissingToken(t *testing.T) {
	_, httpSrv, _ := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), "", nil)
	_, resp, err := d.Dial(wsURL(httpSrv.URL), h)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleUpgrade_RejectsWrongToken(t *testing.T) {
	_, httpSrv, _ := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), "wrong", nil)
	_, resp, err := d.Dial(wsURL(httpSrv.URL), h)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleUpgrade_AcceptsAndEchoesSubprotocol(t *testing.T) {
	_, httpSrv, cfg := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), cfg.AuthToken, []string{"mcp"})
	conn, resp, err := d.Dial(wsURL(httpSrv.URL), h)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, "mcp", resp.Header.Get("Sec-WebSocket-Protocol"))
}

func TestHandleUpgrade_ToolsListAndToolsCall(t *testing.T) {
	_, httpSrv, cfg := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), cfg.AuthToken, nil)
	conn, _, err := d.Dial(wsURL(httpSrv.URL), h)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(rpctypes.NewRequest(json.RawMessage(`1`), "tools/list", nil)))
	var listResp rpctypes.Message
	require.NoError(t, conn.ReadJSON(&listResp))
	require.Nil(t, listResp.Error)

	callParams, _ := json.Marshal(map[string]interface{}{"name": "echo", "arguments": map[string]string{}})
	require.NoError(t, conn.WriteJSON(rpctypes.NewRequest(json.RawMessage(`2`), "tools/call", callParams)))
	var callResp rpctypes.Message
	require.NoError(t, conn.ReadJSON(&callResp))
	require.Nil(t, callResp.Error)
	require.Contains(t, string(callResp.Result), "pong")
}

func TestHandleUpgrade_UnknownMethod_ReturnsMethodNotFound(t *testing.T) {
	_, httpSrv, cfg := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), cfg.AuthToken, nil)
	conn, _, err := d.Dial(wsURL(httpSrv.URL), h)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(rpctypes.NewRequest(json.RawMessage(`3`), "bogus/method", nil)))
	var resp rpctypes.Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpctypes.CodeMethodNotFound, resp.Error.Code)
}

func TestHandleUpgrade_MalformedJSON_ReturnsParseError(t *testing.T) {
	_, httpSrv, cfg := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), cfg.AuthToken, nil)
	conn, _, err := d.Dial(wsURL(httpSrv.URL), h)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp rpctypes.Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpctypes.CodeParseError, resp.Error.Code)
}

func TestHandleUpgrade_BusNotificationForwardedToConnection(t *testing.T) {
	s, httpSrv, cfg := newTestServer(t)

	d, h := dialOpts(wsURL(httpSrv.URL), cfg.AuthToken, nil)
	conn, _, err := d.Dial(wsURL(httpSrv.URL), h)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.ConnectionCount() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, s.ConnectionCount())

	s.bus.Publish(notifbus.Notification{Method: "selection_changed", Params: []byte(`{"text":"hi"}`)})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notif rpctypes.Message
	require.NoError(t, conn.ReadJSON(&notif))
	require.Equal(t, "selection_changed", notif.Method)
	require.True(t, notif.IsNotification())
}
