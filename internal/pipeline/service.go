// Package pipeline wires the edit debouncer, the outline extractor, and the
// compile orchestrator into the live update loop, and owns the session
// lifecycle on behalf of the collaborator surfaces (HTTP API, file watcher).
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"git.home.luguber.info/inful/texpreview/internal/compile"
	"git.home.luguber.info/inful/texpreview/internal/config"
	"git.home.luguber.info/inful/texpreview/internal/events"
	"git.home.luguber.info/inful/texpreview/internal/history"
	"git.home.luguber.info/inful/texpreview/internal/logfields"
	"git.home.luguber.info/inful/texpreview/internal/metrics"
	"git.home.luguber.info/inful/texpreview/internal/outline"
	"git.home.luguber.info/inful/texpreview/internal/session"
)

// ErrNoDocument is returned by operations requiring an active session.
var ErrNoDocument = errors.New("pipeline: no document is currently open")

// Status summarizes the pipeline state for the collaborator.
type Status struct {
	Active   bool            `json:"active"`
	Path     string          `json:"path,omitempty"`
	Dirty    bool            `json:"dirty"`
	Headings int             `json:"headings"`
	Last     *compile.Result `json:"last_compile,omitempty"`
	LastAt   *time.Time      `json:"last_compile_at,omitempty"`
}

// Service hosts the live pipeline for one editing session at a time.
type Service struct {
	cfg       *config.Config
	bus       *events.Bus
	extractor *outline.Extractor
	orch      *compile.Orchestrator
	journal   *history.Store // optional
	recorder  metrics.Recorder
	debouncer *Debouncer

	mu          sync.RWMutex
	sess        *session.Context
	lastOutline *outline.Node
	lastOutcome *compile.Outcome
}

// NewService assembles the pipeline. journal may be nil to disable the
// compile-outcome journal.
func NewService(cfg *config.Config, bus *events.Bus, extractor *outline.Extractor,
	orch *compile.Orchestrator, journal *history.Store, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	s := &Service{
		cfg:       cfg,
		bus:       bus,
		extractor: extractor,
		orch:      orch,
		journal:   journal,
		recorder:  recorder,
	}

	s.debouncer = NewDebouncer(cfg.QuietWindow(), cfg.MaxDelay(), func(tr Trigger) {
		s.recorder.IncDebounceTrigger()
		// The pipeline runs off the timer goroutine so the subprocess never
		// stalls scheduling.
		go s.run(context.Background(), tr)
	})

	return s
}

// LoadDocument creates a session for the document at path. When text is
// empty the file's current content is read from disk. Any pending debounce
// for a previous document is cancelled, and the pipeline runs once
// immediately so the collaborator gets an outline and preview right away.
func (s *Service) LoadDocument(ctx context.Context, path, text string) error {
	if text == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text = string(data)
	}

	sess, err := session.Open(path, text, s.cfg.Backup.DirName)
	if err != nil {
		return err
	}

	s.debouncer.Cancel()

	s.mu.Lock()
	s.sess = sess
	s.lastOutline = nil
	s.lastOutcome = nil
	s.mu.Unlock()

	s.publish(ctx, events.DocumentLoaded{Path: sess.Path(), At: time.Now()})

	// The initial run outlives the caller's context (an HTTP request, say).
	go s.run(context.Background(), Trigger{NotifyCount: 1, Reason: "load"})
	return nil
}

// CloseDocument cancels any pending debounce and clears the session. An
// in-flight compile is allowed to finish; its result is discarded because the
// session it would be surfaced against is gone.
func (s *Service) CloseDocument(ctx context.Context) {
	s.debouncer.Cancel()

	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.lastOutline = nil
	s.lastOutcome = nil
	s.mu.Unlock()

	if sess != nil {
		s.publish(ctx, events.DocumentClosed{Path: sess.Path(), At: time.Now()})
	}
}

// OnEdit replaces the buffer content and arms the debouncer.
func (s *Service) OnEdit(text string) error {
	sess := s.current()
	if sess == nil {
		return ErrNoDocument
	}
	sess.UpdateText(text)
	s.debouncer.Notify()
	return nil
}

// OnExternalChange feeds a file-watcher observation into the pipeline. The
// buffer is only replaced (and the debouncer armed) when the on-disk content
// differs, so the orchestrator's own persist writes do not echo back.
func (s *Service) OnExternalChange(text string) {
	sess := s.current()
	if sess == nil {
		return
	}
	if sess.ReplaceIfChanged(text) {
		s.debouncer.Notify()
	}
}

// SaveNow persists the buffer to the source path without compiling.
func (s *Service) SaveNow() error {
	sess := s.current()
	if sess == nil {
		return ErrNoDocument
	}
	if err := os.WriteFile(sess.Path(), []byte(sess.Text()), 0o644); err != nil {
		return err
	}
	sess.MarkClean()
	return nil
}

// CompileNow runs the pipeline synchronously, bypassing the debounce, and
// returns the outcome. With no active document the orchestrator classifies
// the request as an input error without performing I/O.
func (s *Service) CompileNow(ctx context.Context) compile.Outcome {
	return s.run(ctx, Trigger{NotifyCount: 1, Reason: "manual"})
}

// Outline returns the most recently extracted heading tree, or nil.
func (s *Service) Outline() *outline.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOutline
}

// LastOutcome returns the most recently surfaced compile outcome, or nil.
func (s *Service) LastOutcome() *compile.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOutcome
}

// Status reports the session and pipeline state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{}
	if s.sess != nil {
		st.Active = true
		st.Path = s.sess.Path()
		st.Dirty = s.sess.Dirty()
	}
	if s.lastOutline != nil {
		st.Headings = s.lastOutline.Count()
	}
	if s.lastOutcome != nil {
		res := s.lastOutcome.Compile
		st.Last = &res
		at := s.lastOutcome.StartedAt
		st.LastAt = &at
	}
	return st
}

// BackupSource adapts the service for the backup scheduler.
func (s *Service) BackupSource() func() (string, string, bool) {
	return func() (string, string, bool) {
		sess := s.current()
		if sess == nil {
			return "", "", false
		}
		return sess.Text(), sess.BackupDir(), true
	}
}

// Shutdown cancels pending work. In-flight compiles finish on their own.
func (s *Service) Shutdown() {
	s.debouncer.Cancel()
}

func (s *Service) current() *session.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

// run executes one pipeline invocation: outline rebuild first, then the
// compile cycle. The outline is surfaced before the compile result; neither
// step blocks the other's scheduling.
func (s *Service) run(ctx context.Context, tr Trigger) compile.Outcome {
	s.publish(ctx, events.PipelineTriggered{
		TriggeredAt: time.Now(),
		NotifyCount: tr.NotifyCount,
		FirstNotify: tr.FirstNotify,
		LastNotify:  tr.LastNotify,
		Reason:      tr.Reason,
	})

	sess := s.current()
	if sess != nil {
		root := s.extractor.Extract(sess.Text())
		s.mu.Lock()
		s.lastOutline = root
		s.mu.Unlock()
		s.publish(ctx, events.OutlineRebuilt{Root: root, Headings: root.Count(), At: time.Now()})
	}

	out := s.orch.Run(ctx, sess)

	if s.journal != nil {
		if err := s.journal.Append(ctx, history.Entry{
			RequestID:    out.RequestID,
			StartedAt:    out.StartedAt,
			DurationMS:   out.Duration.Milliseconds(),
			Outcome:      out.Compile.Outcome(),
			Diagnostic:   out.Compile.Diagnostic,
			ArtifactPath: out.Compile.ArtifactPath,
			Superseded:   out.Superseded,
		}); err != nil {
			slog.Warn("Failed to journal compile outcome",
				logfields.RequestID(out.RequestID), logfields.Error(err))
		}
	}

	// Superseded outcomes are dropped for presentation: only the newest
	// request's result is surfaced.
	if out.Superseded {
		return out
	}

	// Discard the result when the session it ran against was closed or
	// replaced mid-flight.
	if s.current() != sess {
		return out
	}

	s.mu.Lock()
	s.lastOutcome = &out
	s.mu.Unlock()

	s.publish(ctx, events.CompileFinished{Outcome: out, At: time.Now()})
	return out
}

func (s *Service) publish(ctx context.Context, evt any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil && !errors.Is(err, events.ErrClosed) {
		slog.Warn("Event publish failed", logfields.Error(err))
	}
}
