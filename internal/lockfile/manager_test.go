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

package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	lf := &File{
		PID:              1234,
		WorkspaceFolders: []string{"/home/dev/project"},
		IDEName:          "Zed",
		Transport:        "ws",
		AuthToken:        "abcdefghijklmnopqrstuvwxyz012345",
	}

	require.NoError(t, m.Write(45000, lf))

	got, err := m.Read(45000)
	require.NoError(t, err)
	require.Equal(t, lf.PID, got.PID)
	require.Equal(t, lf.AuthToken, got.AuthToken)
	require.Equal(t, lf.WorkspaceFolders, got.WorkspaceFolders)
}

func TestWrite_OverwritesStaleFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, m.Write(45000, &File{PID: 1, AuthToken: "old", Transport: "ws"}))
	require.NoError(t, m.Write(45000, &File{PID: 2, AuthToken: "new", Transport: "ws"}))

	got, err := m.Read(45000)
	require.NoError(t, err)
	require.Equal(t, 2, got.PID)
	require.Equal(t, "new", got.AuthToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "stale temp files must not accumulate")
}

func TestRemove_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, m.Remove(9999))

	require.NoError(t, m.Write(9999, &File{PID: 1, Transport: "ws"}))
	require.NoError(t, m.Remove(9999))
	require.NoError(t, m.Remove(9999))

	_, err := os.Stat(filepath.Join(dir, "9999.lock"))
	require.True(t, os.IsNotExist(err))
}

func TestWrite_ProducesStableFieldNames(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, m.Write(1, &File{
		PID:              99,
		WorkspaceFolders: []string{"/a"},
		IDEName:          "Zed",
		Transport:        "ws",
		AuthToken:        "tok",
	}))

	data, err := os.ReadFile(filepath.Join(dir, "1.lock"))
	require.NoError(t, err)

	for _, field := range []string{`"pid"`, `"workspaceFolders"`, `"ideName"`, `"transport"`, `"authToken"`} {
		require.Contains(t, string(data), field)
	}
}

func TestWriteThenRemove_IsNoOpOnDirectoryContents(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	before, err := os.ReadDir(dir)
	require.NoError(t, err)

	require.NoError(t, m.Write(8080, &File{PID: 1, Transport: "ws"}))
	require.NoError(t, m.Remove(8080))

	after, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Equal(t, len(before), len(after))
}
