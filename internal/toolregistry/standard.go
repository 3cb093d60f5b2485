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

package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sengokudaikon/claude-code-zed/internal/editorstate"
	"github.com/sengokudaikon/claude-code-zed/internal/outline"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
)

// Deps are the collaborators the standard tool set reads and writes. They
// are supplied once, at registration time, and shared by every handler.
type Deps struct {
	State          *editorstate.State
	WorkspaceRoots []string
}

// RegisterStandard installs the fixed set of editor-bridge tools (file and
// selection access, tab/diff management, plus the echo/get_workspace_info
// connectivity probes) into r.
func RegisterStandard(r *Registry, deps *Deps) {
	r.Register(openFileTool(), openFileHandler(deps))
	r.Register(currentSelectionTool(), currentSelectionHandler(deps))
	r.Register(latestSelectionTool(), latestSelectionHandler(deps))
	r.Register(openEditorsTool(), openEditorsHandler(deps))
	r.Register(workspaceFoldersTool(), workspaceFoldersHandler(deps))
	r.Register(openDiffTool(), openDiffHandler(deps))
	r.Register(closeAllDiffTabsTool(), closeAllDiffTabsHandler(deps))
	r.Register(closeTabTool(), closeTabHandler(deps))
	r.Register(diagnosticsTool(), diagnosticsHandler(deps))
	r.Register(checkDocumentDirtyTool(), checkDocumentDirtyHandler(deps))
	r.Register(saveDocumentTool(), saveDocumentHandler(deps))
	r.Register(executeCodeTool(), executeCodeHandler(deps))
	r.Register(echoTool(), echoToolHandler(deps))
	r.Register(getWorkspaceInfoTool(), getWorkspaceInfoHandler(deps))
}

func decodeArgs(args json.RawMessage, v interface{}) *rpctypes.ToolError {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return rpctypes.InvalidParams(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func jsonText(v interface{}) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// --- openFile -----------------------------------------------------------

type openFileArgs struct {
	FilePath      string `json:"filePath"`
	Preview       bool   `json:"preview,omitempty"`
	StartText     string `json:"startText,omitempty"`
	EndText       string `json:"endText,omitempty"`
	MakeFrontmost *bool  `json:"makeFrontmost,omitempty"`
}

func openFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "openFile",
		Description: "Open a file in the editor, optionally scrolled to a text range.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filePath":      map[string]interface{}{"type": "string"},
				"preview":       map[string]interface{}{"type": "boolean"},
				"startText":     map[string]interface{}{"type": "string"},
				"endText":       map[string]interface{}{"type": "string"},
				"makeFrontmost": map[string]interface{}{"type": "boolean", "default": true},
			},
			Required: []string{"filePath"},
		},
	}
}

func openFileHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a openFileArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.FilePath == "" {
			return nil, rpctypes.InvalidParams("filePath is required")
		}

		frontmost := a.MakeFrontmost == nil || *a.MakeFrontmost
		deps.State.SetOpenTabs(append(deps.State.OpenTabs(), editorstate.Tab{
			Path:       a.FilePath,
			LanguageID: languageIDFor(a.FilePath),
		}))

		if frontmost {
			return mcp.NewToolResultText(fmt.Sprintf("Opened file: %s", a.FilePath)), nil
		}

		data, err := os.ReadFile(a.FilePath)
		if err != nil {
			return jsonText(map[string]interface{}{
				"success":  false,
				"filePath": a.FilePath,
			}), nil
		}
		lineCount := 1
		for _, b := range data {
			if b == '\n' {
				lineCount++
			}
		}
		languageID := languageIDFor(a.FilePath)
		result := map[string]interface{}{
			"success":    true,
			"filePath":   a.FilePath,
			"languageId": languageID,
			"lineCount":  lineCount,
		}
		if lang := outline.GetLanguage(languageID); lang != nil {
			result["outline"] = blockOutline(lang.DetectBlocks(string(data)))
		}
		return jsonText(result), nil
	}
}

// blockOutline reduces outline.Block boundaries to the small summary a
// file preview response carries, rather than the full content.
func blockOutline(blocks []outline.Block) []map[string]interface{} {
	summary := make([]map[string]interface{}, 0, len(blocks))
	for _, b := range blocks {
		summary = append(summary, map[string]interface{}{
			"type":      b.Type,
			"name":      b.Name,
			"startLine": b.StartLine,
			"endLine":   b.EndLine,
		})
	}
	return summary
}

func languageIDFor(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".md":
		return "markdown"
	default:
		return "plaintext"
	}
}

// --- getCurrentSelection / getLatestSelection ----------------------------

func currentSelectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "getCurrentSelection",
		Description: "Return the editor's current text selection.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func currentSelectionHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		return selectionResult(deps.State.CurrentSelection()), nil
	}
}

func latestSelectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "getLatestSelection",
		Description: "Return the last selection observed, even if focus has since moved.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func latestSelectionHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		return selectionResult(deps.State.LatestSelection()), nil
	}
}

func selectionResult(sel *editorstate.Selection) *mcp.CallToolResult {
	if sel == nil {
		return jsonText(map[string]interface{}{
			"success": false,
			"message": "No selection available",
		})
	}
	return jsonText(map[string]interface{}{
		"success":  true,
		"text":     sel.Text,
		"filePath": sel.FilePath,
		"fileUrl":  sel.FileURL,
		"selection": map[string]interface{}{
			"start":   sel.Start,
			"end":     sel.End,
			"isEmpty": sel.IsEmpty,
		},
	})
}

// --- getOpenEditors -------------------------------------------------------

func openEditorsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "getOpenEditors",
		Description: "List the editor's currently open tabs.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func openEditorsHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		return jsonText(map[string]interface{}{"tabs": deps.State.OpenTabs()}), nil
	}
}

// --- getWorkspaceFolders ---------------------------------------------------

func workspaceFoldersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "getWorkspaceFolders",
		Description: "List the editor's workspace root folders.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func workspaceFoldersHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		folders := deps.State.WorkspaceFolders()
		if len(folders) == 0 {
			folders = foldersFromRoots(deps.WorkspaceRoots)
		}
		var rootPath string
		if len(folders) > 0 {
			rootPath = folders[0].Path
		}
		return jsonText(map[string]interface{}{
			"success":  true,
			"folders":  folders,
			"rootPath": rootPath,
		}), nil
	}
}

func foldersFromRoots(roots []string) []editorstate.WorkspaceFolder {
	out := make([]editorstate.WorkspaceFolder, 0, len(roots))
	for _, root := range roots {
		out = append(out, editorstate.WorkspaceFolder{
			Name: filepath.Base(root),
			URI:  "file://" + root,
			Path: root,
		})
	}
	return out
}

// --- openDiff / closeAllDiffTabs / close_tab ------------------------------

type openDiffArgs struct {
	OldFilePath      string `json:"old_file_path"`
	NewFilePath      string `json:"new_file_path"`
	NewFileContents  string `json:"new_file_contents"`
	TabName          string `json:"tab_name"`
}

func openDiffTool() mcp.Tool {
	return mcp.Tool{
		Name:        "openDiff",
		Description: "Open a diff view between the on-disk file and proposed new contents.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"old_file_path":      map[string]interface{}{"type": "string"},
				"new_file_path":      map[string]interface{}{"type": "string"},
				"new_file_contents":  map[string]interface{}{"type": "string"},
				"tab_name":           map[string]interface{}{"type": "string"},
			},
			Required: []string{"old_file_path", "new_file_path", "new_file_contents", "tab_name"},
		},
	}
}

func openDiffHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a openDiffArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.NewFilePath == "" {
			return nil, rpctypes.InvalidParams("new_file_path is required")
		}

		deps.State.SetOpenTabs(append(deps.State.OpenTabs(), editorstate.Tab{
			Path:       a.TabName,
			LanguageID: languageIDFor(a.NewFilePath),
		}))

		return &mcp.CallToolResult{Content: []mcp.Content{
			mcp.NewTextContent("FILE_SAVED"),
			mcp.NewTextContent(a.NewFileContents),
		}}, nil
	}
}

func closeAllDiffTabsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "closeAllDiffTabs",
		Description: "Close every open diff tab.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func closeAllDiffTabsHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		n := deps.State.CloseAllTabs()
		return mcp.NewToolResultText(fmt.Sprintf("CLOSED_%d_DIFF_TABS", n)), nil
	}
}

type closeTabArgs struct {
	TabName string `json:"tab_name"`
}

func closeTabTool() mcp.Tool {
	return mcp.Tool{
		Name:        "close_tab",
		Description: "Close a single named tab.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"tab_name": map[string]interface{}{"type": "string"}},
			Required:   []string{"tab_name"},
		},
	}
}

func closeTabHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a closeTabArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.TabName == "" {
			return nil, rpctypes.InvalidParams("tab_name is required")
		}
		deps.State.CloseTab(a.TabName)
		return mcp.NewToolResultText("TAB_CLOSED"), nil
	}
}

// --- getDiagnostics --------------------------------------------------------

type diagnosticsArgs struct {
	URI string `json:"uri,omitempty"`
}

func diagnosticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "getDiagnostics",
		Description: "Return editor-reported diagnostics, optionally scoped to one document.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"uri": map[string]interface{}{"type": "string"}},
		},
	}
}

func diagnosticsHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a diagnosticsArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}

		byURI := deps.State.Diagnostics(a.URI)
		out := make([]map[string]interface{}, 0, len(byURI))
		for uri, diags := range byURI {
			out = append(out, map[string]interface{}{"uri": uri, "diagnostics": diags})
		}
		return jsonText(out), nil
	}
}

// --- checkDocumentDirty / saveDocument --------------------------------------

type filePathArgs struct {
	FilePath string `json:"filePath"`
}

func checkDocumentDirtyTool() mcp.Tool {
	return mcp.Tool{
		Name:        "checkDocumentDirty",
		Description: "Report whether a document has unsaved changes.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"filePath": map[string]interface{}{"type": "string"}},
			Required:   []string{"filePath"},
		},
	}
}

func checkDocumentDirtyHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a filePathArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.FilePath == "" {
			return nil, rpctypes.InvalidParams("filePath is required")
		}
		return jsonText(map[string]interface{}{
			"success":    true,
			"filePath":   a.FilePath,
			"isDirty":    deps.State.IsDirty(a.FilePath),
			"isUntitled": false,
		}), nil
	}
}

func saveDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "saveDocument",
		Description: "Save a document's pending changes to disk.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"filePath": map[string]interface{}{"type": "string"}},
			Required:   []string{"filePath"},
		},
	}
}

func saveDocumentHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a filePathArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.FilePath == "" {
			return nil, rpctypes.InvalidParams("filePath is required")
		}

		deps.State.SetDirty(a.FilePath, false)
		return jsonText(map[string]interface{}{
			"success":  true,
			"filePath": a.FilePath,
			"saved":    true,
			"message":  "Document saved",
		}), nil
	}
}

// --- executeCode -------------------------------------------------------------

type executeCodeArgs struct {
	Code string `json:"code"`
}

func executeCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "executeCode",
		Description: "Execute a code snippet in the editor host's REPL, where supported. This implementation reports the snippet it would run rather than executing it, since handler sandboxing is out of scope.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"code": map[string]interface{}{"type": "string"}},
			Required:   []string{"code"},
		},
	}
}

func executeCodeHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a executeCodeArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		if a.Code == "" {
			return nil, rpctypes.InvalidParams("code is required")
		}
		return mcp.NewToolResultText(fmt.Sprintf("Execution not supported in this environment; received %d bytes of code", len(a.Code))), nil
	}
}

// --- echo / get_workspace_info (supplemented) --------------------------------

type echoArgs struct {
	Message string `json:"message"`
}

func echoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "echo",
		Description: "Echo a message back; useful for connectivity checks.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"message": map[string]interface{}{"type": "string"}},
			Required:   []string{"message"},
		},
	}
}

func echoToolHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		var a echoArgs
		if toolErr := decodeArgs(args, &a); toolErr != nil {
			return nil, toolErr
		}
		return mcp.NewToolResultText(a.Message), nil
	}
}

func getWorkspaceInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_workspace_info",
		Description: "Summarize workspace roots and open tab count in one call.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}
}

func getWorkspaceInfoHandler(deps *Deps) Handler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, *rpctypes.ToolError) {
		folders := deps.State.WorkspaceFolders()
		if len(folders) == 0 {
			folders = foldersFromRoots(deps.WorkspaceRoots)
		}
		return jsonText(map[string]interface{}{
			"workspaceFolders": folders,
			"openTabCount":     len(deps.State.OpenTabs()),
		}), nil
	}
}
