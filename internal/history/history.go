// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps an optional local log of pipeline runs in a SQLite
// database. Only run outcomes are stored; pipeline data never lands here.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// Entry is one recorded run.
type Entry struct {
	ID          int64
	Source      string
	Destination string
	Rows        int
	Action      string // "created" or "updated"
	CommitSHA   string
	CompletedAt time.Time
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		rows INTEGER NOT NULL,
		action TEXT NOT NULL,
		commit_sha TEXT,
		completed_at TEXT NOT NULL
	)`)
	return err
}

// Record appends one run to the log. A zero CompletedAt is filled with the
// current time.
func (s *Store) Record(e Entry) error {
	completed := e.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (source, destination, rows, action, commit_sha, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Source, e.Destination, e.Rows, e.Action, e.CommitSHA,
		completed.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, source, destination, rows, action, commit_sha, completed_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var completed string
		if err := rows.Scan(&e.ID, &e.Source, &e.Destination, &e.Rows, &e.Action, &e.CommitSHA, &completed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, completed); perr == nil {
			e.CompletedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
