// Package history archives finished runs in a SQLite database so results
// can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"leaguecheck/internal/verify"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Results for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run is one archived run.
type Run struct {
	ID         string
	League     string
	Division   string
	StartedAt  time.Time
	FinishedAt time.Time
	Passed     int
	Failed     int
	Cancelled  bool
}

// Result is one archived registrant result.
type Result struct {
	Seq     int
	Name    string
	Address string
	Sport   string
	Verdict string
	Outcome string
	Detail  string
	Error   string
	Retries int
}

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; a run is archived once at the end.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, dbPath: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		league TEXT NOT NULL,
		division TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		sport TEXT NOT NULL,
		verdict TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		retries INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun archives a sealed result set in one transaction.
func (s *Store) SaveRun(ctx context.Context, rs *verify.ResultSet) error {
	if !rs.Sealed() {
		return errors.New("refusing to archive an unsealed result set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info := rs.Info()
	entries := rs.Entries()
	passed := len(rs.Pass())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, league, division, started_at, finished_at, passed, failed, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, info.ID, info.League, info.Division, formatTime(info.StartedAt), formatTime(info.FinishedAt),
		passed, len(entries)-passed, boolInt(info.Cancelled)); err != nil {
		return fmt.Errorf("failed to save run %s: %w", info.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, seq, name, address, sport, verdict, outcome, detail, error, retries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		outcome, detail := "", ""
		if e.Err == "" {
			outcome = e.Outcome.Kind.String()
			detail = e.Outcome.Description()
		}
		if _, err := stmt.ExecContext(ctx, info.ID, e.Seq, e.Name, e.Address, string(e.Sport),
			string(e.Verdict), outcome, detail, e.Err, e.Retries); err != nil {
			return fmt.Errorf("failed to save result %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", info.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, league, division, started_at, finished_at, passed, failed, cancelled
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var cancelled int
		if err := rows.Scan(&r.ID, &r.League, &r.Division, &started, &finished, &r.Passed, &r.Failed, &cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.Cancelled = cancelled != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results returns the archived results of a run in processing order.
func (s *Store) Results(ctx context.Context, runID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, name, address, sport, verdict, outcome, detail, error, retries
		FROM results
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Seq, &r.Name, &r.Address, &r.Sport, &r.Verdict, &r.Outcome, &r.Detail, &r.Error, &r.Retries); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
