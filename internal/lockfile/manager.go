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

// Package lockfile implements the per-port JSON lock file the assistant
// uses to discover a running editor-bridge server: its port, its
// authentication token, and the workspace it is serving.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrUnsafeDirectory is returned when the lock directory's parent is
// world-writable, the same symlink-attack concern a PID file manager
// guards against.
var ErrUnsafeDirectory = errors.New("lock file directory is world-writable")

// File is the lock file descriptor written to <dir>/<port>.lock. Field names
// are part of the wire contract the assistant parses; do not rename them.
type File struct {
	PID              int      `json:"pid"`
	WorkspaceFolders []string `json:"workspaceFolders"`
	IDEName          string   `json:"ideName"`
	Transport        string   `json:"transport"`
	AuthToken        string   `json:"authToken"`
}

// Manager writes and removes lock files within a single directory.
type Manager struct {
	dir string
}

// NewManager creates a Manager rooted at dir (typically ideconfig.LockDir()).
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) path(port int) string {
	return filepath.Join(m.dir, strconv.Itoa(port)+".lock")
}

// Write serializes and persists the lock file for port. It always removes
// any existing lock file for the same port first — the original
// implementation this system is based on does this unconditionally, not
// only on bind retry, so two consecutive server starts on the same port
// never race on a half-written file — then writes the new content to a
// temp file and renames it into place atomically.
func (m *Manager) Write(port int, lf *File) error {
	if err := m.verifyDirectorySafety(); err != nil {
		return fmt.Errorf("unsafe lock file location: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("failed to create lock file directory: %w", err)
	}

	target := m.path(port)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clean up stale lock file: %w", err)
	}

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize lock file: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, fmt.Sprintf(".%d.lock.*.tmp", port))
	if err != nil {
		return fmt.Errorf("failed to create temp lock file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set lock file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize lock file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install lock file: %w", err)
	}

	return nil
}

// Remove deletes the lock file for port. Idempotent: a missing file is not
// an error.
func (m *Manager) Remove(port int) error {
	if err := os.Remove(m.path(port)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Read loads and parses the lock file for port, for tests and diagnostics.
func (m *Manager) Read(port int) (*File, error) {
	data, err := os.ReadFile(m.path(port))
	if err != nil {
		return nil, err
	}
	var lf File
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return &lf, nil
}

// verifyDirectorySafety rejects a world-writable parent directory and
// confirms the lock directory, once it exists, is not itself
// advisory-locked by a conflicting process holding an exclusive flock —
// mirroring a PID-file directory check, adapted to
// golang.org/x/sys/unix for the portable flock constants.
func (m *Manager) verifyDirectorySafety() error {
	info, err := os.Stat(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat lock directory: %w", err)
	}

	mode := info.Mode()
	if mode&0002 != 0 {
		return fmt.Errorf("%w: %s has mode %04o", ErrUnsafeDirectory, m.dir, mode&os.ModePerm)
	}

	return m.checkAdvisoryLock()
}

// checkAdvisoryLock takes and immediately releases a non-blocking shared
// flock on the directory, surfacing EWOULDBLOCK as a non-fatal warning
// rather than an error: unlike a PID file, the lock directory is a shared
// resource normal concurrent server instances on different ports both use.
func (m *Manager) checkAdvisoryLock() error {
	fd, err := unix.Open(m.dir, unix.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	defer unix.Close(fd)

	_ = unix.Flock(fd, unix.LOCK_SH|unix.LOCK_NB)
	_ = unix.Flock(fd, unix.LOCK_UN)
	return nil
}
