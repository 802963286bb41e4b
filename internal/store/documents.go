// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// InsertDocument stores a document under insert-or-ignore semantics
// (R2.1). When the ID already exists the row is enriched instead of
// replaced: an empty abstract or full-text URL is filled in, the
// citation count takes the larger value, and an unbound row is bound to
// planID (R2.2). Returns true when a new row was inserted. planID may
// be empty for documents indexed outside any plan.
func (s *Store) InsertDocument(ctx context.Context, doc types.Document, planID string) (bool, error) {
	authorsJSON, _ := json.Marshal(doc.Authors)
	typesJSON, _ := json.Marshal(doc.PublicationTypes)

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents
			(id, plan_id, title, abstract, authors, year, venue, publication_types,
			 citation_count, full_text_url, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, nullString(planID), doc.Title, doc.Abstract, string(authorsJSON),
		doc.Year, doc.Venue, string(typesJSON),
		doc.CitationCount, doc.FullTextURL, string(doc.Origin),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET
			abstract = CASE WHEN (abstract IS NULL OR abstract = '') AND ? != '' THEN ? ELSE abstract END,
			full_text_url = CASE WHEN (full_text_url IS NULL OR full_text_url = '') AND ? != '' THEN ? ELSE full_text_url END,
			citation_count = MAX(citation_count, ?),
			plan_id = COALESCE(plan_id, ?)
		 WHERE id = ?`,
		doc.Abstract, doc.Abstract,
		doc.FullTextURL, doc.FullTextURL,
		doc.CitationCount, nullString(planID), doc.ID,
	)
	if err != nil {
		return false, fmt.Errorf("enriching document %s: %w", doc.ID, err)
	}
	return false, nil
}

// GetDocument returns the stored document, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, abstract, authors, year, venue, publication_types,
			citation_count, full_text_url, origin
		 FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up document %s: %w", id, err)
	}
	return &doc, nil
}

// SearchDocuments runs an FTS5 MATCH over titles and abstracts and
// returns up to limit documents ranked by relevance, with citation
// count and recency breaking ties (R3.1-R3.3). Returned documents are
// local candidates regardless of how their rows first arrived.
func (s *Store) SearchDocuments(ctx context.Context, match string, limit int) ([]types.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.title, d.abstract, d.authors, d.year, d.venue,
			d.publication_types, d.citation_count, d.full_text_url, d.origin
		 FROM documents_fts
		 JOIN documents d ON d.rowid = documents_fts.rowid
		 WHERE documents_fts MATCH ?
		 ORDER BY documents_fts.rank, d.citation_count DESC, d.year DESC
		 LIMIT ?`,
		match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.Origin = types.OriginLocal
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of indexed documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func scanDocument(scan func(dest ...any) error) (types.Document, error) {
	var (
		doc         types.Document
		origin      string
		abstract    sql.NullString
		authorsJSON sql.NullString
		venue       sql.NullString
		typesJSON   sql.NullString
		ftURL       sql.NullString
		year        sql.NullInt64
	)

	err := scan(
		&doc.ID, &doc.Title, &abstract, &authorsJSON, &year, &venue,
		&typesJSON, &doc.CitationCount, &ftURL, &origin,
	)
	if err != nil {
		return types.Document{}, err
	}

	doc.Abstract = abstract.String
	doc.Venue = venue.String
	doc.FullTextURL = ftURL.String
	doc.Year = int(year.Int64)
	doc.Origin = types.Origin(origin)
	if authorsJSON.Valid {
		json.Unmarshal([]byte(authorsJSON.String), &doc.Authors)
	}
	if typesJSON.Valid {
		json.Unmarshal([]byte(typesJSON.String), &doc.PublicationTypes)
	}
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
