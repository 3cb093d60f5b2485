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

// Package rpctypes defines the strict JSON-RPC 2.0 envelope shared by the
// WebSocket endpoint and the stdio editor protocol endpoint, plus the tool
// error codes both dispatchers translate into wire error objects.
package rpctypes

import "encoding/json"

// Version is the only jsonrpc field value this server ever emits or accepts.
const Version = "2.0"

// Error codes, matching the JSON-RPC 2.0 reserved range.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Message is the wire envelope for both endpoints. id is carried as
// json.RawMessage rather than a Go value so a request id round-trips
// byte-for-byte (strings, numbers, or omission) the way JSON-RPC requires.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsNotification reports whether m carries no id — i.e. no response is
// expected or permitted.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0
}

// NewRequest builds a request message with the given id, method, and params.
func NewRequest(id json.RawMessage, method string, params json.RawMessage) *Message {
	return &Message{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification builds a notification message (no id, no response expected).
func NewNotification(method string, params json.RawMessage) *Message {
	return &Message{JSONRPC: Version, Method: method, Params: params}
}

// NewResult builds a success response echoing id.
func NewResult(id json.RawMessage, result json.RawMessage) *Message {
	return &Message{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response echoing id. id may be nil when the
// failure occurred before a request id could be parsed (e.g. malformed JSON).
func NewError(id json.RawMessage, code int, message string, data json.RawMessage) *Message {
	return &Message{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

// ParseMessage parses a single JSON-RPC message from raw bytes.
func ParseMessage(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal serializes the message.
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ToolError is the typed error every tool handler returns on failure. The
// dispatcher translates it directly into a JSON-RPC Error at the transport
// boundary; it is never serialized to JSON on its own.
type ToolError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *ToolError) Error() string {
	return e.Message
}

// NewToolError builds a ToolError with an explicit code.
func NewToolError(code int, message string) *ToolError {
	return &ToolError{Code: code, Message: message}
}

// InvalidParams builds a ToolError for a missing/malformed argument.
func InvalidParams(message string) *ToolError {
	return NewToolError(CodeInvalidParams, message)
}

// InternalError builds a ToolError for a handler-side failure.
func InternalError(message string) *ToolError {
	return NewToolError(CodeInternal, message)
}

// NotFound builds a ToolError for an unregistered tool name.
func NotFound(name string) *ToolError {
	return NewToolError(CodeMethodNotFound, "Tool not found: "+name)
}

// ToError converts a ToolError into the wire Error object.
func (e *ToolError) ToError() *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: e.Data}
}
