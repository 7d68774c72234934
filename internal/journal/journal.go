// Package journal persists cycle results to a local SQLite database. The
// journal is append-only observability: the cycle never reads it back, and
// journal failures never fail a cycle.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/cycle"
	_ "modernc.org/sqlite"
)

// Record is one journaled cycle result.
type Record struct {
	CycleID    string
	Device     string
	Branch     string
	Outcome    string
	Stage      string
	Detail     string
	CommitHash string
	Message    string
	StartedAt  time.Time
	Duration   time.Duration
}

// FromResult converts a cycle result into its journal record.
func FromResult(res cycle.Result) Record {
	return Record{
		CycleID:    res.ID,
		Device:     res.Device,
		Branch:     res.Branch,
		Outcome:    string(res.Outcome),
		Stage:      res.Stage,
		Detail:     res.Detail,
		CommitHash: res.Commit,
		Message:    res.Message,
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
	}
}

// Store is a SQLite-backed cycle journal.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the journal database. Use ":memory:" for an
// in-memory journal, or a file path for persistent storage.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		device TEXT NOT NULL,
		branch TEXT NOT NULL,
		outcome TEXT NOT NULL,
		stage TEXT,
		detail TEXT,
		commit_hash TEXT,
		message TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	CREATE INDEX IF NOT EXISTS idx_cycles_outcome ON cycles(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a cycle record to the journal.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (cycle_id, device, branch, outcome, stage, detail, commit_hash, message, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.Device, rec.Branch, rec.Outcome, rec.Stage, rec.Detail,
		rec.CommitHash, rec.Message, rec.StartedAt.Unix(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert cycle record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle_id, device, branch, outcome, stage, detail, commit_hash, message, started_at, duration_ms
		 FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedUnix, durationMS int64
		err := rows.Scan(&rec.CycleID, &rec.Device, &rec.Branch, &rec.Outcome, &rec.Stage,
			&rec.Detail, &rec.CommitHash, &rec.Message, &startedUnix, &durationMS)
		if err != nil {
			return nil, fmt.Errorf("scan cycle record: %w", err)
		}
		rec.StartedAt = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
