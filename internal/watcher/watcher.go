// Package watcher feeds external modifications of the source document into
// the pipeline. Many editors replace files via rename, so the watch is placed
// on the containing directory and events are filtered down to the document.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/texpreview/internal/logfields"
)

// Sink receives the document content observed on disk. The pipeline service
// implements it and suppresses echoes of its own persist writes.
type Sink interface {
	OnExternalChange(text string)
}

// Watcher observes one document file for external changes.
type Watcher struct {
	path string
	sink Sink
	fsw  *fsnotify.Watcher
}

// New starts watching the directory containing path. Close the returned
// watcher or cancel the Run context to release the inotify handle.
func New(path string, sink Sink) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: fsnotify: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watcher: add %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, sink: sink, fsw: fsw}, nil
}

// Run processes filesystem events until the context is canceled or the
// watcher is closed. It always returns nil on a clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("Watching document for external changes", logfields.Path(w.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.relevant(ev) {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		// Editors that replace via rename can leave a short window where the
		// file does not exist; the next event delivers the final content.
		slog.Debug("Skipping unreadable document", logfields.Path(w.path), logfields.Error(err))
		return
	}

	w.sink.OnExternalChange(string(data))
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}
