// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// SaveFinding persists one evaluation record (R5.1). The database holds
// at most one record per (plan, document, subtopic); a conflicting save
// overwrites the verdict rather than duplicating it (R5.2).
func (s *Store) SaveFinding(ctx context.Context, f *types.Finding) error {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO findings (id, plan_id, doc_id, subtopic, score, finding, source_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(plan_id, doc_id, subtopic) DO UPDATE SET
			score=excluded.score, finding=excluded.finding,
			source_type=excluded.source_type, created_at=excluded.created_at`,
		f.ID, f.PlanID, f.DocID, f.Subtopic, f.Score, f.Finding,
		string(f.SourceType), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving finding for %s: %w", f.DocID, err)
	}
	return nil
}

// FindingsByPlan returns every evaluation record for a plan in insertion
// order, which preserves the order documents were evaluated in (R5.3).
func (s *Store) FindingsByPlan(ctx context.Context, planID string) ([]types.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, doc_id, subtopic, score, finding, source_type, created_at
		 FROM findings WHERE plan_id = ? ORDER BY rowid`,
		planID)
	if err != nil {
		return nil, fmt.Errorf("listing findings for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var findings []types.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning finding row: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// FindingsBySubtopic returns a plan's evaluation records for one
// subtopic in insertion order.
func (s *Store) FindingsBySubtopic(ctx context.Context, planID, subtopic string) ([]types.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, doc_id, subtopic, score, finding, source_type, created_at
		 FROM findings WHERE plan_id = ? AND subtopic = ? ORDER BY rowid`,
		planID, subtopic)
	if err != nil {
		return nil, fmt.Errorf("listing findings for subtopic %q: %w", subtopic, err)
	}
	defer rows.Close()

	var findings []types.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning finding row: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func scanFinding(rows *sql.Rows) (types.Finding, error) {
	var (
		f          types.Finding
		sourceType string
		finding    sql.NullString
		createdAt  sql.NullString
	)
	err := rows.Scan(
		&f.ID, &f.PlanID, &f.DocID, &f.Subtopic, &f.Score,
		&finding, &sourceType, &createdAt,
	)
	if err != nil {
		return types.Finding{}, err
	}
	f.Finding = finding.String
	f.SourceType = types.SourceType(sourceType)
	if createdAt.Valid && createdAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, createdAt.String); err == nil {
			f.CreatedAt = t
		}
	}
	return f, nil
}
