// Package backup snapshots the document buffer into an append-only directory
// on a fixed period, independent of edit and compile activity. Failures are
// logged and never stop the scheduling loop.
package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/texpreview/internal/logfields"
	"git.home.luguber.info/inful/texpreview/internal/metrics"
)

// timestampLayout orders lexicographically the same as chronologically at
// second granularity.
const timestampLayout = "20060102_150405"

// Record describes one written snapshot.
type Record struct {
	Timestamp time.Time
	Path      string
}

// SnapshotSource reports the current buffer and backup destination.
// Active is false when no document is open, in which case the firing is a
// no-op and the next one is still scheduled.
type SnapshotSource func() (text string, dir string, active bool)

// Scheduler runs the periodic snapshot loop.
type Scheduler struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	source    SnapshotSource
	recorder  metrics.Recorder
}

// NewScheduler creates the backup scheduler. The loop starts on Start and
// always reschedules itself regardless of each firing's outcome.
func NewScheduler(interval time.Duration, source SnapshotSource, recorder metrics.Recorder) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("backup: interval must be > 0")
	}
	if source == nil {
		return nil, fmt.Errorf("backup: snapshot source is required")
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("backup: create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: gs,
		interval:  interval,
		source:    source,
		recorder:  recorder,
	}

	if _, err := gs.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithName("buffer-backup"),
	); err != nil {
		return nil, fmt.Errorf("backup: create job: %w", err)
	}

	return s, nil
}

// Start begins the periodic loop.
func (s *Scheduler) Start() {
	slog.Info("Starting backup scheduler", slog.Duration("interval", s.interval))
	s.scheduler.Start()
}

// Stop shuts the loop down; pending firings are abandoned.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping backup scheduler")
	return s.scheduler.Shutdown()
}

// tick is the gocron task body. Errors are logged only; they must never
// propagate or stall the loop.
func (s *Scheduler) tick() {
	text, dir, active := s.source()
	if !active {
		slog.Debug("Backup skipped: no active document")
		return
	}

	rec, err := WriteSnapshot(dir, text, time.Now())
	s.recorder.IncBackupResult(err == nil)
	if err != nil {
		slog.Warn("Backup failed", logfields.Error(err))
		return
	}
	slog.Info("Backup written", logfields.Path(rec.Path))
}

// WriteSnapshot writes the buffer verbatim to a timestamped file in dir.
// Filenames sort lexicographically in chronological order.
func WriteSnapshot(dir, text string, now time.Time) (Record, error) {
	name := fmt.Sprintf("backup_%s.tex", now.Format(timestampLayout))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return Record{}, fmt.Errorf("backup: write snapshot: %w", err)
	}

	return Record{Timestamp: now, Path: path}, nil
}
