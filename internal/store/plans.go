// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// SavePlan upserts a research plan. The full plan is stored as YAML so
// it round-trips exactly; query, title, and timestamp are broken out
// into columns for retrieval (R4.1, R4.2).
func (s *Store) SavePlan(ctx context.Context, p *types.Plan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, query, title, plan_yaml, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, title=excluded.title,
			plan_yaml=excluded.plan_yaml, created_at=excluded.created_at`,
		p.ID, p.Query, p.Title, string(data), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving plan %s: %w", p.ID, err)
	}
	return nil
}

// GetPlan returns the stored plan, or nil when absent.
func (s *Store) GetPlan(ctx context.Context, id string) (*types.Plan, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan_yaml FROM plans WHERE id = ?`, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up plan %s: %w", id, err)
	}

	var p types.Plan
	if err := yaml.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("parsing stored plan %s: %w", id, err)
	}
	return &p, nil
}

// LatestPlan returns the most recently created plan, or nil when the
// store holds none.
func (s *Store) LatestPlan(ctx context.Context) (*types.Plan, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan_yaml FROM plans ORDER BY created_at DESC LIMIT 1`,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up latest plan: %w", err)
	}

	var p types.Plan
	if err := yaml.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("parsing stored plan: %w", err)
	}
	return &p, nil
}

// RecentQueries returns distinct plan queries, most recent first. The
// background indexer uses these to decide what to crawl (R4.3).
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query FROM plans GROUP BY query ORDER BY MAX(created_at) DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scanning query row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}
