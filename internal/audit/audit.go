// Package audit persists a log of webhook tool invocations for operator
// visibility. The invocation pipeline itself stays stateless per call; the
// store only records terminal outcomes after the response is written.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome labels for terminal pipeline states.
const (
	OutcomeOK               = "ok"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeBadRequest       = "bad_request"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeInvalidParams    = "invalid_params"
	OutcomeExecError        = "exec_error"
)

// Entry is one recorded invocation.
type Entry struct {
	ID         string
	Tool       string
	RequestID  string
	AgentID    string
	Outcome    string
	Status     int
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// Recorder accepts invocation entries. The webhook server takes this
// interface so it can run without a store.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Store is a SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the audit database at path and ensures
// the invocation table exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS invocation_log (
  id          TEXT PRIMARY KEY,
  tool        TEXT NOT NULL,
  request_id  TEXT,
  agent_id    TEXT,
  outcome     TEXT NOT NULL,
  status      INTEGER NOT NULL,
  error       TEXT,
  duration_ms INTEGER NOT NULL,
  created_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS invocation_log_created_at_idx ON invocation_log(created_at);`,
		`CREATE INDEX IF NOT EXISTS invocation_log_tool_idx ON invocation_log(tool, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap audit db: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one invocation entry. Missing IDs and timestamps are
// filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocation_log (id, tool, request_id, agent_id, outcome, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Tool, e.RequestID, e.AgentID, e.Outcome, e.Status, e.Error, e.DurationMs,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, request_id, agent_id, outcome, status, error, duration_ms, created_at
		 FROM invocation_log ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Tool, &e.RequestID, &e.AgentID, &e.Outcome, &e.Status, &e.Error, &e.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocation_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune invocations: %w", err)
	}
	return res.RowsAffected()
}
