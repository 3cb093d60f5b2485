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

// Package serverconfig holds the immutable record established at process
// startup and frozen for the server's lifetime: the listening port, the
// authentication token the WebSocket endpoint accepts, the workspace roots,
// and the IDE display name. Every component that needs these values is
// handed a *Config rather than reading a package-level singleton.
package serverconfig

import (
	"crypto/rand"
)

// Transport is always "ws" for this server; kept as a named constant since
// the lock file and the initialize handshake both reference it.
const Transport = "ws"

// tokenAlphabet is restricted to characters that are safe to carry
// unescaped in a JSON string and in an HTTP header value.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TokenLength is the number of characters in a generated auth token, per
// the data model's "32-character printable string".
const TokenLength = 32

// Config is the frozen server configuration shared by both endpoints.
type Config struct {
	// Port is the TCP port the WebSocket endpoint listens on. Zero means
	// the caller wants an OS-assigned ephemeral port; Listen() fills this
	// in once bound.
	Port int

	// AuthToken is the secret the WebSocket handshake compares against
	// the x-claude-code-ide-authorization header.
	AuthToken string

	// WorkspaceRoots are the absolute paths the lock file and
	// getWorkspaceFolders advertise.
	WorkspaceRoots []string

	// IDEName is the display name recorded in the lock file.
	IDEName string

	// Transport is always serverconfig.Transport.
	Transport string
}

// GenerateToken returns a cryptographically random, 32-character string
// drawn from an alphanumeric alphabet safe for JSON and HTTP headers.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, TokenLength)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}

// New builds a Config with a freshly generated auth token. port of 0 means
// OS-assigned; it is updated in place once the listener binds.
func New(port int, workspaceRoots []string, ideName string) (*Config, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	return &Config{
		Port:           port,
		AuthToken:      token,
		WorkspaceRoots: workspaceRoots,
		IDEName:        ideName,
		Transport:      Transport,
	}, nil
}
