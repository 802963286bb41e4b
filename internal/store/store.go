// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists research plans, documents, and findings in
// SQLite and serves ranked full-text retrieval over the local document
// index. Implements: prd004-source-store (R1-R5);
//
//	docs/ARCHITECTURE § Source Store.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// Store manages the survey-engine SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and ensures the schema
// exists (R1.1, R1.2). The parent directory is created if needed.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "survey.db"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
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
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			title TEXT,
			plan_yaml TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			plan_id TEXT REFERENCES plans(id),
			title TEXT,
			abstract TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			publication_types TEXT,
			citation_count INTEGER NOT NULL DEFAULT 0,
			full_text_url TEXT,
			origin TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_plan_id ON documents(plan_id)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL REFERENCES plans(id),
			doc_id TEXT NOT NULL REFERENCES documents(id),
			subtopic TEXT NOT NULL,
			score INTEGER NOT NULL,
			finding TEXT,
			source_type TEXT,
			created_at TEXT,
			UNIQUE(plan_id, doc_id, subtopic)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_plan_id ON findings(plan_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_doc_id ON findings(doc_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over title and abstract with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(
				title, abstract,
				content=documents,
				tokenize='porter unicode61 remove_diacritics 2'
			)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO documents_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}
