// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/assess"
	"github.com/pdiddy/survey-engine/internal/memo"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// evaluate runs the budgeted evaluation loop over candidates in order.
// The same loop serves both phases. Cancellation is honored between
// candidates.
func (e *Engine) evaluate(ctx context.Context, st *subtopicState, docs []types.Document, log *zap.Logger) error {
	for _, doc := range docs {
		if !st.budget.shouldContinue() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if st.budget.processed(doc.ID) {
			continue
		}
		if err := e.evaluateOne(ctx, st, doc, log); err != nil {
			return err
		}
	}
	return nil
}

// evaluateOne judges a single document and persists exactly one
// evaluation record for it. Documents with no usable text are skipped
// without consuming budget or producing a record.
func (e *Engine) evaluateOne(ctx context.Context, st *subtopicState, doc types.Document, log *zap.Logger) error {
	text, sourceType, ok := e.textFor(ctx, st, doc, log)
	if !ok {
		log.Debug("no usable text, skipping", zap.String("doc_id", doc.ID))
		return nil
	}

	score := e.scoreText(ctx, text, st.ec, log)
	if err := ctx.Err(); err != nil {
		return err
	}
	st.budget.record(doc.ID, score)

	var findingText string
	if score >= st.cfg.RelevanceThreshold {
		findingText = e.extractFinding(ctx, text, st.ec, log)
	}

	rec := &types.Finding{
		ID:         uuid.NewString(),
		PlanID:     st.planID,
		DocID:      doc.ID,
		Subtopic:   st.ec.Subtopic,
		Score:      score,
		Finding:    findingText,
		SourceType: sourceType,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.Store.SaveFinding(ctx, rec); err != nil {
		return fmt.Errorf("saving evaluation record for %s: %w", doc.ID, err)
	}

	log.Debug("document evaluated",
		zap.String("doc_id", doc.ID),
		zap.Int("score", score),
		zap.Bool("finding", findingText != ""),
		zap.String("source", string(sourceType)),
	)
	return nil
}

// textFor picks the text to judge: the abstract when present, otherwise
// a full-text excerpt when fetching is enabled and a URL exists.
func (e *Engine) textFor(ctx context.Context, st *subtopicState, doc types.Document, log *zap.Logger) (string, types.SourceType, bool) {
	if doc.HasAbstract() {
		return doc.Abstract, types.SourceAbstract, true
	}
	if !st.cfg.FullTextEnabled || e.FullText == nil || doc.FullTextURL == "" {
		return "", "", false
	}

	excerpt, err := e.FullText.Excerpt(ctx, doc.FullTextURL)
	if err != nil {
		log.Debug("full-text fetch failed",
			zap.String("doc_id", doc.ID), zap.Error(err))
		return "", "", false
	}
	if strings.TrimSpace(excerpt) == "" {
		return "", "", false
	}
	return excerpt, types.SourceFullText, true
}

// scoreText returns the relevance verdict for text, consulting the
// score cache first. A malformed reply is a deterministic minimum and
// is cached like any other verdict; an unavailable scorer yields the
// minimum for this document only.
func (e *Engine) scoreText(ctx context.Context, text string, ec types.EvalContext, log *zap.Logger) int {
	key := memo.KeyFor(ec, text)
	if score, ok := e.Caches.Scores.Get(key); ok {
		return score
	}

	score, err := e.Scorer.Score(ctx, text, ec)
	switch {
	case err == nil:
		e.Caches.Scores.Put(key, score)
	case errors.Is(err, assess.ErrMalformed):
		e.Caches.Scores.Put(key, score)
		log.Warn("malformed scorer reply", zap.Error(err))
	default:
		score = types.ScoreMin
		log.Warn("scorer unavailable", zap.Error(err))
	}
	return score
}

// extractFinding returns the finding text for a relevant document,
// consulting the finding cache first. The no-finding outcome is cached
// explicitly; extractor unavailability is not.
func (e *Engine) extractFinding(ctx context.Context, text string, ec types.EvalContext, log *zap.Logger) string {
	key := memo.KeyFor(ec, text)
	if cached, found, ok := e.Caches.Findings.Get(key); ok {
		if found {
			return cached
		}
		return ""
	}

	finding, found, err := e.Extractor.Extract(ctx, text, ec)
	switch {
	case err == nil:
		e.Caches.Findings.Put(key, finding, found)
		if found {
			return finding
		}
	case errors.Is(err, assess.ErrMalformed):
		e.Caches.Findings.Put(key, "", false)
		log.Warn("malformed extractor reply", zap.Error(err))
	default:
		log.Warn("extractor unavailable", zap.Error(err))
	}
	return ""
}
