// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package indexer populates the local document index in the background
// by crawling the external corpus for recently researched queries, so
// later runs find more locally and fall back less.
// Implements: prd007-indexer R1-R4;
//
//	docs/ARCHITECTURE § Indexer.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/corpus"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// keywordsPerQuery is how many search keywords the generator is asked
// for per plan query.
const keywordsPerQuery = 5

// Store is the slice of the document store the indexer uses.
type Store interface {
	RecentQueries(ctx context.Context, limit int) ([]string, error)
	InsertDocument(ctx context.Context, doc types.Document, planID string) (bool, error)
}

// KeywordGenerator produces search keywords for a plan query.
type KeywordGenerator interface {
	Keywords(ctx context.Context, topic string, n int) ([]string, error)
}

// Corpus pages through remote search results.
type Corpus interface {
	Search(ctx context.Context, query string, pageSize int, cursor string) (corpus.Page, error)
}

// Indexer crawls the corpus for recent plan queries and stores what it
// finds without binding documents to any plan. Not safe for concurrent
// use; run one per process.
type Indexer struct {
	Store    Store
	Corpus   Corpus
	Keywords KeywordGenerator
	Logger   *zap.Logger
	Config   types.IndexerConfig

	// done tracks queries already indexed in this process so cycles
	// only pick up genuinely new ones.
	done map[string]bool
}

// Run cycles until the context is canceled: after a productive cycle it
// pauses for the query delay, after an empty or failed one for the idle
// delay.
func (ix *Indexer) Run(ctx context.Context) error {
	cfg := withDefaults(ix.Config)
	for {
		n, err := ix.Cycle(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			ix.logger().Error("indexing cycle failed", zap.Error(err))
			if err := sleep(ctx, cfg.IdleDelay); err != nil {
				return err
			}
		case n == 0:
			if err := sleep(ctx, cfg.IdleDelay); err != nil {
				return err
			}
		default:
			if err := sleep(ctx, cfg.QueryDelay); err != nil {
				return err
			}
		}
	}
}

// Cycle indexes every recent plan query not yet handled this session
// and reports how many it processed. Keyword and corpus failures
// degrade with a warning; store failures and cancellation propagate.
func (ix *Indexer) Cycle(ctx context.Context) (int, error) {
	cfg := withDefaults(ix.Config)
	if ix.done == nil {
		ix.done = make(map[string]bool)
	}

	queries, err := ix.Store.RecentQueries(ctx, cfg.MaxQueries)
	if err != nil {
		return 0, fmt.Errorf("listing recent queries: %w", err)
	}

	processed := 0
	for _, q := range queries {
		if ix.done[q] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if processed > 0 {
			if err := sleep(ctx, cfg.QueryDelay); err != nil {
				return processed, err
			}
		}
		if err := ix.indexQuery(ctx, q, cfg); err != nil {
			return processed, err
		}
		ix.done[q] = true
		processed++
	}
	return processed, nil
}

// indexQuery crawls the corpus for one plan query: keywords first, then
// capped paging per keyword, inserting unbound documents as it goes.
func (ix *Indexer) indexQuery(ctx context.Context, query string, cfg types.IndexerConfig) error {
	log := ix.logger().With(zap.String("query", query))
	log.Info("indexing query")

	kws, err := ix.Keywords.Keywords(ctx, query, keywordsPerQuery)
	if err != nil {
		log.Warn("keyword generation failed, using bare query", zap.Error(err))
		kws = []string{query}
	}
	if len(kws) == 0 {
		kws = []string{query}
	}

	seen := make(map[string]bool)
	inserted := 0
	for i, kw := range kws {
		if i > 0 {
			if err := sleep(ctx, cfg.KeywordDelay); err != nil {
				return err
			}
		}
		n, err := ix.indexKeyword(ctx, kw, seen, cfg, log)
		inserted += n
		if err != nil {
			return err
		}
	}

	log.Info("query indexed",
		zap.Int("keywords", len(kws)), zap.Int("new_documents", inserted))
	return nil
}

// indexKeyword pages the corpus for one keyword up to the per-keyword
// cap and returns how many fetched documents were new to the store.
func (ix *Indexer) indexKeyword(ctx context.Context, kw string, seen map[string]bool, cfg types.IndexerConfig, log *zap.Logger) (int, error) {
	cursor := corpus.FirstCursor
	fetched := 0
	inserted := 0

	for fetched < cfg.PerKeywordCap {
		page, err := ix.Corpus.Search(ctx, kw, cfg.PerKeywordCap-fetched, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			log.Warn("corpus search failed, skipping keyword",
				zap.String("keyword", kw), zap.Error(err))
			return inserted, nil
		}
		if len(page.Documents) == 0 {
			break
		}
		fetched += len(page.Documents)

		for _, doc := range page.Documents {
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			fresh, err := ix.Store.InsertDocument(ctx, doc, "")
			if err != nil {
				return inserted, fmt.Errorf("persisting document %s: %w", doc.ID, err)
			}
			if fresh {
				inserted++
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return inserted, nil
}

func (ix *Indexer) logger() *zap.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return zap.NewNop()
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func withDefaults(cfg types.IndexerConfig) types.IndexerConfig {
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 5
	}
	if cfg.PerKeywordCap <= 0 {
		cfg.PerKeywordCap = 100
	}
	if cfg.KeywordDelay <= 0 {
		cfg.KeywordDelay = 10 * time.Second
	}
	if cfg.QueryDelay <= 0 {
		cfg.QueryDelay = 30 * time.Second
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = 5 * time.Minute
	}
	return cfg
}
