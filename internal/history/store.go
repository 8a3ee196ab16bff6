// Package history keeps an append-only journal of compile outcomes in
// SQLite, so diagnostics survive process restarts and recent activity can
// be inspected over the HTTP API.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// maxDiagnosticLen bounds stored log excerpts; full logs stay on disk in the
// build workspace.
const maxDiagnosticLen = 4096

// Entry is one journaled compile cycle.
type Entry struct {
	ID           int64
	RequestID    string
	StartedAt    time.Time
	DurationMS   int64
	Outcome      string // "success" or a failure kind
	Diagnostic   string
	ArtifactPath string
	Superseded   bool
}

// Store implements the journal on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the journal database. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		diagnostic TEXT,
		artifact_path TEXT,
		superseded INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_compiles_started_at ON compiles(started_at);
	CREATE INDEX IF NOT EXISTS idx_compiles_outcome ON compiles(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append journals one compile cycle.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	diag := e.Diagnostic
	if len(diag) > maxDiagnosticLen {
		diag = diag[:maxDiagnosticLen]
	}

	superseded := 0
	if e.Superseded {
		superseded = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compiles (request_id, started_at, duration_ms, outcome, diagnostic, artifact_path, superseded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.StartedAt.UnixMilli(), e.DurationMS, e.Outcome, diag, e.ArtifactPath, superseded,
	)
	if err != nil {
		return fmt.Errorf("history: insert entry: %w", err)
	}

	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, started_at, duration_ms, outcome, diagnostic, artifact_path, superseded
		 FROM compiles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedMilli int64
		var superseded int
		if err := rows.Scan(&e.ID, &e.RequestID, &startedMilli, &e.DurationMS,
			&e.Outcome, &e.Diagnostic, &e.ArtifactPath, &superseded); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedMilli)
		e.Superseded = superseded != 0
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
