// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversion runs in a local SQLite database and
// exports them as YAML or JSON.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mdto/pkg/types"
)

const defaultLimit = 50

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at cfg.Path and creates
// the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultHistoryPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT,
			item_index INTEGER NOT NULL,
			property TEXT,
			file_name TEXT,
			format TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			output_name TEXT,
			output_size INTEGER,
			started_at TEXT NOT NULL,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts one run.
func (s *Store) Record(ctx context.Context, rec types.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (job_id, item_index, property, file_name, format, status, error,
			output_name, output_size, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.Index, rec.Property, rec.FileName, string(rec.Format), string(rec.Status),
		rec.Error, rec.OutputName, rec.OutputSize,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Entry is a stored run with its row id.
type Entry struct {
	ID              int64 `json:"id" yaml:"id"`
	types.RunRecord `yaml:",inline"`
}

// ListOptions filters List. Zero values mean no filter; Limit 0 uses the
// default of 50, a negative Limit returns every row.
type ListOptions struct {
	Status types.RunStatus
	Format types.Format
	Limit  int
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	var where []string
	var args []any
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Format != "" {
		where = append(where, "format = ?")
		args = append(args, string(opts.Format))
	}

	q := `SELECT id, job_id, item_index, property, file_name, format, status, error,
			output_name, output_size, started_at, duration_ms FROM runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"

	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                   Entry
			jobID, prop, fileName, errText, out sql.NullString
			format, status, started             string
			size, durationMS                    sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &jobID, &e.Index, &prop, &fileName, &format, &status,
			&errText, &out, &size, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.JobID = jobID.String
		e.Property = prop.String
		e.FileName = fileName.String
		e.Format = types.Format(format)
		e.Status = types.RunStatus(status)
		e.Error = errText.String
		e.OutputName = out.String
		e.OutputSize = int(size.Int64)
		e.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			e.StartedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary counts runs by status.
type Summary struct {
	Converted int `json:"converted" yaml:"converted"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Total returns the number of recorded runs.
func (s Summary) Total() int {
	return s.Converted + s.Failed
}

// Summarize counts all recorded runs by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM runs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing runs: %w", err)
	}
	defer rows.Close()

	var sum Summary
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Summary{}, fmt.Errorf("scanning summary: %w", err)
		}
		switch types.RunStatus(status) {
		case types.RunConverted:
			sum.Converted = n
		case types.RunFailed:
			sum.Failed = n
		}
	}
	return sum, rows.Err()
}
