// Package journal keeps a local SQLite record of every retrieval attempt.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS retrievals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    driver TEXT NOT NULL,
    host TEXT NOT NULL,
    path TEXT NOT NULL,
    outcome TEXT NOT NULL,
    size INTEGER NOT NULL DEFAULT 0,
    sha256 TEXT,
    location TEXT,
    error TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_retrievals_host_path ON retrievals(host, path);
`

// Entry is one retrieval attempt.
type Entry struct {
	RunID     string
	Driver    string
	Host      string
	Path      string
	Outcome   string
	Size      int
	SHA256    string
	Location  string
	Error     string
	CreatedAt time.Time
}

// Journal is an append-only retrieval log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO retrievals (run_id, driver, host, path, outcome, size, sha256, location, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Driver, e.Host, e.Path, e.Outcome, e.Size,
		nullString(e.SHA256), nullString(e.Location), nullString(e.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record retrieval: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, driver, host, path, outcome, size,
		        COALESCE(sha256, ''), COALESCE(location, ''), COALESCE(error, ''), created_at
		 FROM retrievals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query retrievals: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.RunID, &e.Driver, &e.Host, &e.Path, &e.Outcome, &e.Size,
			&e.SHA256, &e.Location, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan retrieval: %w", err)
		}
		e.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
