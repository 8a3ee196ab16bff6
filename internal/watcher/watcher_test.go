package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSink) OnExternalChange(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func startWatcher(t *testing.T, path string, sink Sink) {
	t.Helper()

	w, err := New(path, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
		<-done
	})
}

func TestDeliversWriteToWatchedDocument(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(doc, []byte("initial"), 0o644))

	sink := &recordingSink{}
	startWatcher(t, doc, sink)

	require.NoError(t, os.WriteFile(doc, []byte(`\section{Changed}`), 0o644))

	require.Eventually(t, func() bool {
		for _, s := range sink.snapshot() {
			if s == `\section{Changed}` {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(doc, []byte("initial"), 0o644))

	sink := &recordingSink{}
	startWatcher(t, doc, sink)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.tex"), []byte("noise"), 0o644))

	time.Sleep(200 * time.Millisecond)
	require.Empty(t, sink.snapshot())
}

func TestDeliversReplaceViaRename(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(doc, []byte("initial"), 0o644))

	sink := &recordingSink{}
	startWatcher(t, doc, sink)

	// Write-to-temp-then-rename, the way most editors save.
	tmp := filepath.Join(dir, ".doc.tex.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("replaced"), 0o644))
	require.NoError(t, os.Rename(tmp, doc))

	require.Eventually(t, func() bool {
		for _, s := range sink.snapshot() {
			if s == "replaced" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNewRejectsUnwatchableDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "doc.tex"), &recordingSink{})
	require.Error(t, err)
}
