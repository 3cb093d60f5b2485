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

// Package editorprotocol implements the stdio endpoint that speaks the
// classical editor JSON-RPC protocol, length-prefixed with Content-Length
// framing. It translates a subset of editor events (code actions,
// selection-range requests, the at-mention execute-command) into domain
// notifications published on the shared notification bus, and answers the
// rest of the protocol's document-lifecycle and capability surface with
// static or state-backed responses. It must never write to stdout outside
// of WriteFrame, since stdout carries the wire protocol.
package editorprotocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sengokudaikon/claude-code-zed/internal/editorstate"
	"github.com/sengokudaikon/claude-code-zed/internal/log"
	"github.com/sengokudaikon/claude-code-zed/internal/notifbus"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
	"github.com/sengokudaikon/claude-code-zed/internal/utf16range"
)

// Endpoint is the stdio editor-protocol server. It holds no per-connection
// state of its own beyond whether initialize/shutdown have been observed;
// the shared editorstate.State carries everything handlers read back.
type Endpoint struct {
	state          *editorstate.State
	bus            *notifbus.Bus
	workspaceRoots []string
	logger         *slog.Logger

	initialized atomic.Bool
	shutdown    atomic.Bool
}

// New returns an Endpoint publishing to bus and reading/writing state.
func New(state *editorstate.State, bus *notifbus.Bus, workspaceRoots []string, logger *slog.Logger) *Endpoint {
	if logger == nil {
		logger = slog.Default()
	}
	return &Endpoint{state: state, bus: bus, workspaceRoots: workspaceRoots, logger: logger}
}

// Serve reads frames from r and writes responses to w until r is exhausted,
// a shutdown is observed and the stream closes, or ctx is cancelled. Read
// errors other than io.EOF are returned; a clean EOF returns nil.
func (e *Endpoint) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := ReadFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("editorprotocol: read frame: %w", err)
		}

		log.Trace(e.logger, "editor protocol frame received", log.String(log.MethodKey, msg.Method))

		resp := e.handle(ctx, msg)
		if resp == nil {
			continue
		}
		if err := WriteFrame(w, resp); err != nil {
			return fmt.Errorf("editorprotocol: write frame: %w", err)
		}
	}
}

// handle dispatches one inbound message and returns the response to write,
// or nil for notifications and for requests this endpoint never answers.
func (e *Endpoint) handle(ctx context.Context, msg *rpctypes.Message) *rpctypes.Message {
	switch msg.Method {
	case "initialize":
		e.handleInitialize(msg.Params)
		return rpctypes.NewResult(msg.ID, mustJSON(initializeResult()))
	case "initialized":
		e.initialized.Store(true)
		return nil
	case "shutdown":
		e.shutdown.Store(true)
		return rpctypes.NewResult(msg.ID, json.RawMessage("null"))
	case "exit":
		return nil
	case "textDocument/didOpen":
		e.handleDidOpen(msg.Params)
		return nil
	case "textDocument/didChange":
		return nil
	case "textDocument/didSave":
		return nil
	case "textDocument/didClose":
		e.handleDidClose(msg.Params)
		return nil
	case "textDocument/hover":
		return rpctypes.NewResult(msg.ID, mustJSON(hoverResult()))
	case "textDocument/completion":
		return rpctypes.NewResult(msg.ID, mustJSON(completionResult()))
	case "textDocument/codeAction":
		actions := e.handleCodeAction(msg.Params)
		return rpctypes.NewResult(msg.ID, mustJSON(actions))
	case "textDocument/selectionRange":
		ranges := e.handleSelectionRange(msg.Params)
		return rpctypes.NewResult(msg.ID, mustJSON(ranges))
	case "textDocument/definition", "textDocument/references":
		return rpctypes.NewResult(msg.ID, json.RawMessage("[]"))
	case "textDocument/documentSymbol", "workspace/symbol":
		return rpctypes.NewResult(msg.ID, json.RawMessage("[]"))
	case "workspace/executeCommand":
		result := e.handleExecuteCommand(msg.Params)
		return rpctypes.NewResult(msg.ID, mustJSON(result))
	default:
		if msg.IsNotification() {
			return nil
		}
		return rpctypes.NewError(msg.ID, rpctypes.CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func hoverResult() map[string]interface{} {
	return map[string]interface{}{
		"contents": "Claude Code: AI-powered coding assistance available here",
	}
}

func completionResult() []map[string]interface{} {
	return []map[string]interface{}{
		{"label": "@claude explain", "insertText": "@claude explain", "detail": "Explain this code with Claude"},
		{"label": "@claude improve", "insertText": "@claude improve", "detail": "Improve this code with Claude"},
		{"label": "@claude fix", "insertText": "@claude fix", "detail": "Fix issues in this code with Claude"},
	}
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type wireInitializeParams struct {
	WorkspaceFolders []struct {
		URI  string `json:"uri"`
		Name string `json:"name"`
	} `json:"workspaceFolders"`
	RootURI *string `json:"rootUri"`
}

func (e *Endpoint) handleInitialize(params json.RawMessage) {
	var p wireInitializeParams
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}

	folders := make([]editorstate.WorkspaceFolder, 0, len(p.WorkspaceFolders))
	for _, f := range p.WorkspaceFolders {
		folders = append(folders, editorstate.WorkspaceFolder{
			Name: f.Name,
			URI:  f.URI,
			Path: filePathFromURI(f.URI),
		})
	}
	if len(folders) == 0 {
		for _, root := range e.workspaceRoots {
			folders = append(folders, editorstate.WorkspaceFolder{Name: root, URI: "file://" + root, Path: root})
		}
	}
	e.state.SetWorkspaceFolders(folders)
}

type didOpenParams struct {
	TextDocument struct {
		URI        string `json:"uri"`
		LanguageID string `json:"languageId"`
	} `json:"textDocument"`
}

func (e *Endpoint) handleDidOpen(params json.RawMessage) {
	var p didOpenParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	path := filePathFromURI(p.TextDocument.URI)
	tabs := e.state.OpenTabs()
	for _, t := range tabs {
		if t.Path == path {
			return
		}
	}
	e.state.SetOpenTabs(append(tabs, editorstate.Tab{Path: path, LanguageID: p.TextDocument.LanguageID}))
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

func (e *Endpoint) handleDidClose(params json.RawMessage) {
	var p didCloseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	e.state.CloseTab(filePathFromURI(p.TextDocument.URI))
}

type wireRange struct {
	Start utf16range.Position `json:"start"`
	End   utf16range.Position `json:"end"`
}

type codeActionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        wireRange              `json:"range"`
}

// handleCodeAction reads the referenced file, extracts the text spanned by
// the given range, publishes selection_changed, and returns a single
// "Explain with Claude" action — the original implementation's sole
// code action.
func (e *Endpoint) handleCodeAction(params json.RawMessage) []map[string]interface{} {
	var p codeActionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}

	r := utf16range.Range{Start: p.Range.Start, End: p.Range.End}
	e.publishSelectionChanged(p.TextDocument.URI, r)

	return []map[string]interface{}{
		{
			"title": "Explain with Claude",
			"kind":  "refactor",
			"data": map[string]interface{}{
				"action": "explain",
				"uri":    p.TextDocument.URI,
				"range":  p.Range,
			},
		},
	}
}

type selectionRangeParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Positions    []utf16range.Position  `json:"positions"`
}

type selectionRangeResult struct {
	Range wireRange `json:"range"`
}

// handleSelectionRange builds a one-character selection range for each
// requested position and publishes selection_changed for each, matching the
// original implementation's per-position notification fan-out.
func (e *Endpoint) handleSelectionRange(params json.RawMessage) []selectionRangeResult {
	var p selectionRangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}

	out := make([]selectionRangeResult, 0, len(p.Positions))
	for _, pos := range p.Positions {
		end := utf16range.Position{Line: pos.Line, Character: pos.Character + 1}
		r := utf16range.Range{Start: pos, End: end}
		out = append(out, selectionRangeResult{Range: wireRange{Start: pos, End: end}})
		e.publishSelectionChanged(p.TextDocument.URI, r)
	}
	return out
}

func (e *Endpoint) publishSelectionChanged(uri string, r utf16range.Range) {
	path := filePathFromURI(uri)
	text := e.readTextFromRange(path, r)

	sel := &editorstate.Selection{
		Text:     text,
		FilePath: path,
		FileURL:  uri,
		Start:    editorstate.Position(r.Start),
		End:      editorstate.Position(r.End),
		IsEmpty:  r.IsEmpty(),
	}
	e.state.SetSelection(sel)

	params, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"filePath": path,
		"fileUrl":  uri,
		"selection": map[string]interface{}{
			"start":   r.Start,
			"end":     r.End,
			"isEmpty": r.IsEmpty(),
		},
	})
	if err != nil {
		e.logger.Warn("failed to encode selection_changed params", log.Error(err))
		return
	}
	e.bus.Publish(notifbus.Notification{Method: "selection_changed", Params: params})
}

func (e *Endpoint) readTextFromRange(path string, r utf16range.Range) string {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("failed to read file for selection extraction", log.String("path", path), log.Error(err))
		return ""
	}
	return utf16range.ExtractText(string(data), r)
}

type executeCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments"`
}

type atMentionArgs struct {
	FilePath  string `json:"filePath"`
	LineStart int    `json:"lineStart"`
	LineEnd   int    `json:"lineEnd"`
}

// handleExecuteCommand dispatches the four domain commands. explain/
// improve/fix are acknowledged stubs (the deep editor integration behind
// them is a host responsibility, per scope); at-mention parses its
// arguments and publishes at_mentioned.
func (e *Endpoint) handleExecuteCommand(params json.RawMessage) interface{} {
	var p executeCommandParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}

	switch p.Command {
	case commandExplain, commandImprove, commandFix:
		return nil
	case commandAtMention:
		if len(p.Arguments) == 0 {
			return nil
		}
		var a atMentionArgs
		if err := json.Unmarshal(p.Arguments[0], &a); err != nil {
			e.logger.Warn("malformed at-mention arguments", log.Error(err))
			return nil
		}
		notifParams, err := json.Marshal(map[string]interface{}{
			"filePath":  a.FilePath,
			"lineStart": a.LineStart,
			"lineEnd":   a.LineEnd,
		})
		if err != nil {
			return nil
		}
		e.bus.Publish(notifbus.Notification{Method: "at_mentioned", Params: notifParams})
		return nil
	default:
		e.logger.Warn("unknown execute-command", log.String("command", p.Command))
		return nil
	}
}

func filePathFromURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
