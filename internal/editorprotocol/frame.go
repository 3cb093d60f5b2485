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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
)

// maxFrameBytes bounds a single frame's declared Content-Length, guarding
// against a runaway or malicious header turning a parse error into an
// unbounded allocation.
const maxFrameBytes = 10 * 1024 * 1024

// ErrMissingContentLength is returned when a frame's header block never
// carries a Content-Length field.
var ErrMissingContentLength = errors.New("editorprotocol: missing Content-Length header")

// ErrFrameTooLarge is returned when a frame declares a Content-Length
// outside [0, maxFrameBytes].
var ErrFrameTooLarge = errors.New("editorprotocol: frame exceeds maximum size")

// ReadFrame reads one Content-Length-framed JSON-RPC message from r.
func ReadFrame(r *bufio.Reader) (*rpctypes.Message, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("editorprotocol: invalid Content-Length: %w", err)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}
	if contentLength > maxFrameBytes {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("editorprotocol: short frame body: %w", err)
	}

	return rpctypes.ParseMessage(body)
}

// WriteFrame serializes msg and writes it to w with a Content-Length header.
func WriteFrame(w io.Writer, msg *rpctypes.Message) error {
	body, err := msg.Marshal()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
