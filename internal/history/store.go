// Package history keeps an append-only ledger of controller runs in a
// local SQLite database. The ledger is purely observational: the build
// controller never reads it and every run starts fresh.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one completed controller run.
type Record struct {
	ID         string
	ProjectDir string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   int
	Success    bool
	Message    string
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the ledger at dbPath. Use ":memory:" for an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project_dir TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		success INTEGER NOT NULL,
		message TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records a finished run. A missing ID is filled in.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, project_dir, started_at, finished_at, attempts, success, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectDir, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
		rec.Attempts, success, rec.Message)
	if err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_dir, started_at, finished_at, attempts, success, message
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var started, finished int64
		var success int
		if err := rows.Scan(&rec.ID, &rec.ProjectDir, &started, &finished, &rec.Attempts, &success, &rec.Message); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		rec.Success = success == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }
