// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists parsed articles and completed runs in SQLite.
// The parse cache is content-addressed: entries are keyed by schema, file
// content hash and body extraction mode, so edited source files miss.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
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
		`CREATE TABLE IF NOT EXISTS parsed_articles (
			source_schema TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			include_body INTEGER NOT NULL,
			articles TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (source_schema, content_hash, include_body)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			role TEXT NOT NULL,
			question TEXT NOT NULL,
			step_back_summary TEXT,
			topics TEXT,
			probe TEXT,
			sources TEXT,
			summary TEXT,
			evaluation TEXT,
			evaluation_raw TEXT,
			kpis TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_role ON runs(role)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
