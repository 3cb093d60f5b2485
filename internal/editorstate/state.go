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

// Package editorstate holds the small amount of mutable state the editor
// protocol endpoint observes and the tool registry's handlers read back:
// the current and last-known text selection, the open tab list, workspace
// folders, per-document dirty flags, and diagnostics. It is the one
// writer-exclusive mapping both endpoints share, per the shared-state
// guidance this system follows rather than a global singleton.
package editorstate

import "sync"

// Position is a zero-based line/character pair in UTF-16 code units, the
// editor protocol's native coordinate system.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans from Start to End within a single document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Selection is the text and range last reported by the editor endpoint.
type Selection struct {
	Text     string `json:"text"`
	FilePath string `json:"filePath"`
	FileURL  string `json:"fileUrl"`
	Start    Position `json:"-"`
	End      Position `json:"-"`
	IsEmpty  bool   `json:"-"`
}

// Tab describes one open editor tab.
type Tab struct {
	Path       string `json:"path"`
	LanguageID string `json:"languageId"`
	IsActive   bool   `json:"isActive"`
	IsDirty    bool   `json:"isDirty"`
}

// WorkspaceFolder is a named root the editor host has open.
type WorkspaceFolder struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
	Path string `json:"path"`
}

// Diagnostic is a single editor-reported problem for a document.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

// State is the process-wide mapping of editor-observed facts. All access
// goes through its methods; the zero value is ready to use.
type State struct {
	mu sync.RWMutex

	current *Selection
	latest  *Selection

	tabs    []Tab
	folders []WorkspaceFolder

	dirty map[string]bool
	diags map[string][]Diagnostic
}

// New returns an empty State.
func New() *State {
	return &State{
		dirty: make(map[string]bool),
		diags: make(map[string][]Diagnostic),
	}
}

// SetSelection records sel as both the current and the latest-known
// selection. A nil sel clears the current selection (e.g. focus moved to a
// non-text view) without discarding the latest one.
func (s *State) SetSelection(sel *Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sel
	if sel != nil {
		s.latest = sel
	}
}

// CurrentSelection returns the active selection, or nil if none.
func (s *State) CurrentSelection() *Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LatestSelection returns the most recent non-nil selection ever observed.
func (s *State) LatestSelection() *Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// SetOpenTabs replaces the open-tab list.
func (s *State) SetOpenTabs(tabs []Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = tabs
}

// OpenTabs returns a copy of the open-tab list.
func (s *State) OpenTabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// CloseTab removes the tab with the given name (matched against Path's base
// name or the full path) and reports whether one was found.
func (s *State) CloseTab(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tabs {
		if t.Path == name {
			s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
			return true
		}
	}
	return false
}

// CloseAllTabs empties the open-tab list and returns how many were closed.
func (s *State) CloseAllTabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tabs)
	s.tabs = nil
	return n
}

// SetWorkspaceFolders replaces the workspace folder list.
func (s *State) SetWorkspaceFolders(folders []WorkspaceFolder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = folders
}

// WorkspaceFolders returns a copy of the workspace folder list.
func (s *State) WorkspaceFolders() []WorkspaceFolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WorkspaceFolder, len(s.folders))
	copy(out, s.folders)
	return out
}

// SetDirty records whether filePath has unsaved changes.
func (s *State) SetDirty(filePath string, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[filePath] = dirty
}

// IsDirty reports whether filePath has unsaved changes. Documents never
// marked are reported clean.
func (s *State) IsDirty(filePath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty[filePath]
}

// SetDiagnostics replaces the diagnostics list for uri.
func (s *State) SetDiagnostics(uri string, diags []Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diags[uri] = diags
}

// Diagnostics returns the diagnostics for uri, or all documents' diagnostics
// keyed by URI when uri is empty.
func (s *State) Diagnostics(uri string) map[string][]Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uri != "" {
		if d, ok := s.diags[uri]; ok {
			return map[string][]Diagnostic{uri: d}
		}
		return nil
	}
	out := make(map[string][]Diagnostic, len(s.diags))
	for k, v := range s.diags {
		out[k] = v
	}
	return out
}
