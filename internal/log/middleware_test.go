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
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogDispatchRequest(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	req := &DispatchRequest{
		Method: "tools/call",
		ConnID: "conn-123",
		Tool:   "openFile",
	}

	LogDispatchRequest(logger, req)

	output := buf.String()

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry[MethodKey] != "tools/call" {
		t.Errorf("expected %s to be 'tools/call', got: %v", MethodKey, logEntry[MethodKey])
	}

	if logEntry[ConnIDKey] != "conn-123" {
		t.Errorf("expected %s to be 'conn-123', got: %v", ConnIDKey, logEntry[ConnIDKey])
	}

	if logEntry[ToolKey] != "openFile" {
		t.Errorf("expected %s to be 'openFile', got: %v", ToolKey, logEntry[ToolKey])
	}
}

func TestLogDispatchRequest_MinimalFields(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	req := &DispatchRequest{
		Method: "initialize",
	}

	LogDispatchRequest(logger, req)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if _, ok := logEntry[ConnIDKey]; ok {
		t.Errorf("expected no %s field for minimal request", ConnIDKey)
	}

	if _, ok := logEntry[ToolKey]; ok {
		t.Errorf("expected no %s field for minimal request", ToolKey)
	}
}

func TestLogDispatchResult_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	req := &DispatchRequest{Method: "tools/call", Tool: "openFile"}
	res := &DispatchResult{Success: true, DurationMs: 12}

	LogDispatchResult(logger, req, res)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["level"] != "DEBUG" {
		t.Errorf("expected level to be 'DEBUG', got: %v", logEntry["level"])
	}

	if logEntry["msg"] != "rpc method completed" {
		t.Errorf("expected msg to be 'rpc method completed', got: %v", logEntry["msg"])
	}

	if logEntry[DurationKey] != float64(12) {
		t.Errorf("expected %s to be 12, got: %v", DurationKey, logEntry[DurationKey])
	}

	if _, ok := logEntry["error"]; ok {
		t.Errorf("expected no error field for successful dispatch")
	}
}

func TestLogDispatchResult_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)

	req := &DispatchRequest{Method: "tools/call", Tool: "openFile"}
	res := &DispatchResult{Success: false, Error: "file not found", DurationMs: 5}

	LogDispatchResult(logger, req, res)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}

	if logEntry["level"] != "WARN" {
		t.Errorf("expected level to be 'WARN', got: %v", logEntry["level"])
	}

	if logEntry["msg"] != "rpc method failed" {
		t.Errorf("expected msg to be 'rpc method failed', got: %v", logEntry["msg"])
	}

	if logEntry["error"] != "file not found" {
		t.Errorf("expected error to be 'file not found', got: %v", logEntry["error"])
	}
}

func TestDispatchMiddleware_Wrap_Success(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)
	middleware := NewDispatchMiddleware(logger)

	req := &DispatchRequest{Method: "tools/call", Tool: "echo"}

	handlerCalled := false
	err := middleware.Wrap(req, func() error {
		handlerCalled = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}

	if !handlerCalled {
		t.Errorf("expected handler to be called")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var requestLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &requestLog); err != nil {
		t.Fatalf("expected valid JSON for request log: %v", err)
	}
	if requestLog["msg"] != "dispatching rpc method" {
		t.Errorf("expected first log to be the dispatch message, got: %v", requestLog["msg"])
	}

	var resultLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &resultLog); err != nil {
		t.Fatalf("expected valid JSON for result log: %v", err)
	}
	if resultLog["msg"] != "rpc method completed" {
		t.Errorf("expected second log to be the completion message, got: %v", resultLog["msg"])
	}
	if _, ok := resultLog[DurationKey]; !ok {
		t.Errorf("expected %s to be present", DurationKey)
	}
}

func TestDispatchMiddleware_Wrap_Error(t *testing.T) {
	var buf bytes.Buffer

	cfg := &Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	}

	logger := New(cfg)
	middleware := NewDispatchMiddleware(logger)

	req := &DispatchRequest{Method: "tools/call", Tool: "openFile"}

	testErr := errors.New("handler error")
	err := middleware.Wrap(req, func() error {
		return testErr
	})

	if err != testErr {
		t.Errorf("expected error to be returned, got: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var resultLog map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &resultLog); err != nil {
		t.Fatalf("expected valid JSON for result log: %v", err)
	}

	if resultLog["error"] != "handler error" {
		t.Errorf("expected error to be 'handler error', got: %v", resultLog["error"])
	}

	if resultLog["level"] != "WARN" {
		t.Errorf("expected level to be WARN, got: %v", resultLog["level"])
	}
}

func TestNewDispatchMiddleware(t *testing.T) {
	logger := New(nil)
	middleware := NewDispatchMiddleware(logger)

	if middleware == nil {
		t.Errorf("expected non-nil middleware")
	}

	if middleware.logger != logger {
		t.Errorf("expected middleware to use provided logger")
	}
}
