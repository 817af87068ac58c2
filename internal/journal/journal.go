// Package journal records dispatch outcomes in a SQLite database so a run
// can be audited after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/markerctl/internal/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	code         TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	remaining_ms INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS dispatches_run ON dispatches (run_id, id);
`

// Entry is one recorded dispatch.
type Entry struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Code      string        `json:"code"`
	Outcome   string        `json:"outcome"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}

// Journal appends dispatch results for one run. Every process start gets a
// fresh run id.
type Journal struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the journal database at path. Use
// ":memory:" for a throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db, runID: uuid.New().String()}, nil
}

// RunID identifies this process's rows.
func (j *Journal) RunID() string {
	return j.runID
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordDispatch implements dispatch.Recorder.
func (j *Journal) RecordDispatch(ctx context.Context, r dispatch.Result) error {
	var errText sql.NullString
	if r.Err != nil {
		errText = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO dispatches (run_id, code, outcome, remaining_ms, error, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, r.Code, string(r.Outcome), r.Remaining.Milliseconds(), errText,
		r.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

// Recent returns up to n entries of the current run, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	return j.query(ctx,
		`SELECT id, run_id, code, outcome, remaining_ms, error, at FROM dispatches
		 WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		j.runID, n)
}

// Counts returns the number of entries per outcome for the current run.
func (j *Journal) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM dispatches WHERE run_id = ? GROUP BY outcome`, j.runID)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var remainingMS int64
		var errText sql.NullString
		var at string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Code, &e.Outcome, &remainingMS, &errText, &at); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		e.Remaining = time.Duration(remainingMS) * time.Millisecond
		e.Error = errText.String
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse time %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
