// Package session owns the mutable state of one editing session: the
// document buffer, its source path, and the build/backup directories
// colocated with the source. A session is created on document load and
// discarded on close; no ambient globals.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/texpreview/internal/logfields"
)

// BuildDirName is created next to the source document and isolates compiler
// side effects from the source tree.
const BuildDirName = "build"

// Context is the session state shared by the pipeline components. All
// methods are safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	path      string
	buildDir  string
	backupDir string
	text      string
	dirty     bool
}

// Open creates a session for the document at path with the given initial
// buffer content, and ensures the build and backup directories exist.
func Open(path, text, backupDirName string) (*Context, error) {
	if path == "" {
		return nil, fmt.Errorf("session: document path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("session: resolve document path: %w", err)
	}

	base := filepath.Dir(abs)
	buildDir := filepath.Join(base, BuildDirName)
	backupDir := filepath.Join(base, backupDirName)

	if err := os.MkdirAll(buildDir, 0o750); err != nil {
		return nil, fmt.Errorf("session: create build dir: %w", err)
	}
	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("session: create backup dir: %w", err)
	}

	slog.Info("Session opened", logfields.Path(abs))

	return &Context{
		path:      abs,
		buildDir:  buildDir,
		backupDir: backupDir,
		text:      text,
		dirty:     false,
	}, nil
}

// Path returns the absolute source path of the active document.
func (c *Context) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// BuildDir returns the build workspace directory.
func (c *Context) BuildDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildDir
}

// BackupDir returns the append-only backup directory.
func (c *Context) BackupDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backupDir
}

// Text returns the current buffer content.
func (c *Context) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text
}

// Dirty reports whether the buffer has unsaved changes.
func (c *Context) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// UpdateText replaces the buffer content and marks it dirty.
func (c *Context) UpdateText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.dirty = true
}

// ReplaceIfChanged replaces the buffer only when the new content differs
// from the current one. It reports whether a replacement happened. Used by
// the file watcher so that the orchestrator's own persist writes do not
// echo back as edits.
func (c *Context) ReplaceIfChanged(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.text {
		return false
	}
	c.text = text
	c.dirty = true
	return true
}

// MarkClean clears the dirty flag after a successful persist.
func (c *Context) MarkClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}
