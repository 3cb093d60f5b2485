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
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
)

// connection is the per-peer record tracked for each live socket:
// connection identifier, peer address, and keepalive timestamps. It lives
// for the duration of the socket.
type connection struct {
	id         string
	remoteAddr string

	conn   *websocket.Conn
	sub    *notifbus.Subscription
	cancel func()

	writeMu sync.Mutex

	lastPing atomic.Int64 // unix nanos
	lastPong atomic.Int64 // unix nanos

	ready atomic.Bool // true once notifications/initialized has been observed
}

func newConnection(id, remoteAddr string, conn *websocket.Conn, sub *notifbus.Subscription, cancel func()) *connection {
	c := &connection{id: id, remoteAddr: remoteAddr, conn: conn, sub: sub, cancel: cancel}
	now := time.Now().UnixNano()
	c.lastPing.Store(now)
	c.lastPong.Store(now)
	return c
}

func (c *connection) touchPong() {
	c.lastPong.Store(time.Now().UnixNano())
}

func (c *connection) pongAge() time.Duration {
	return time.Since(time.Unix(0, c.lastPong.Load()))
}

// writeText writes a single text frame, serializing concurrent writers
// (the inbound response path and the outbound notification forwarder both
// write to the same socket).
func (c *connection) writeText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *connection) writeControl(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, data, deadline)
}

func (c *connection) close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.conn.Close()
}
