// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover runs per-subtopic source discovery: local index
// search, relevance evaluation under a budget, and external corpus
// fallback when the local index comes up short.
// Implements: prd002-discovery (R1-R6);
//
//	docs/ARCHITECTURE § Discovery.
package discover

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/corpus"
	"github.com/pdiddy/survey-engine/internal/dedup"
	"github.com/pdiddy/survey-engine/internal/memo"
	"github.com/pdiddy/survey-engine/internal/query"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// Collaborator contracts. Concrete implementations live in assess,
// keywords, store, corpus, and fulltext; the engine depends only on
// these surfaces.

// RelevanceScorer judges how relevant a text is to a subtopic on the
// 0-10 scale. A non-nil error still carries a usable minimum score.
type RelevanceScorer interface {
	Score(ctx context.Context, text string, ec types.EvalContext) (int, error)
}

// FindingExtractor pulls the subtopic-relevant finding out of a text.
// found=false means the text holds nothing relevant.
type FindingExtractor interface {
	Extract(ctx context.Context, text string, ec types.EvalContext) (finding string, found bool, err error)
}

// KeywordGenerator produces search keywords for a topic.
type KeywordGenerator interface {
	Keywords(ctx context.Context, topic string, n int) ([]string, error)
}

// DocumentStore is the slice of the store the engine needs.
type DocumentStore interface {
	SearchDocuments(ctx context.Context, match string, limit int) ([]types.Document, error)
	InsertDocument(ctx context.Context, doc types.Document, planID string) (bool, error)
	SaveFinding(ctx context.Context, f *types.Finding) error
}

// ExternalCorpus pages through remote search results.
type ExternalCorpus interface {
	Search(ctx context.Context, query string, pageSize int, cursor string) (corpus.Page, error)
}

// TextFetcher retrieves full-text excerpts for documents without
// abstracts.
type TextFetcher interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

// phase of the per-subtopic state machine.
type phase int

const (
	phaseLocalOnly phase = iota
	phaseAPIFallback
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseLocalOnly:
		return "LOCAL_ONLY"
	case phaseAPIFallback:
		return "API_FALLBACK"
	case phaseDone:
		return "DONE"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Engine drives source discovery for one plan. It owns no goroutines;
// subtopics run strictly sequentially on the caller's control flow.
type Engine struct {
	Store     DocumentStore
	Corpus    ExternalCorpus
	Scorer    RelevanceScorer
	Extractor FindingExtractor
	Keywords  KeywordGenerator
	FullText  TextFetcher

	// Caches live for one workflow run; a nil value gets a fresh
	// bundle on first use.
	Caches *memo.Caches
	Logger *zap.Logger

	Discovery types.DiscoveryConfig
	Query     types.QueryConfig

	// PageSize is the corpus page size (default 25).
	PageSize int
}

// Result summarizes one subtopic's discovery run.
type Result struct {
	Subtopic      string
	Section       string
	LocalFound    int
	Evaluated     int
	Relevant      int
	RemoteFetched int
}

// subtopicState is the working state for one subtopic, owned
// exclusively by the engine for the duration of ResearchSubtopic.
type subtopicState struct {
	cfg    types.DiscoveryConfig
	planID string
	ec     types.EvalContext
	phase  phase
	budget *budget

	candidates    []types.Document
	localFound    int
	remoteFetched int
}

// ResearchSubtopic runs the LOCAL_ONLY → API_FALLBACK → DONE machine
// for one subtopic and returns its summary. External-call failures
// degrade to a partial result; only persistence errors and context
// cancellation propagate.
func (e *Engine) ResearchSubtopic(ctx context.Context, plan *types.Plan, subtopic string) (Result, error) {
	subtopic = strings.TrimSpace(subtopic)
	if subtopic == "" {
		return Result{}, fmt.Errorf("empty subtopic")
	}
	if e.Caches == nil {
		e.Caches = memo.NewCaches()
	}

	cfg := withDefaults(e.Discovery)
	st := &subtopicState{
		cfg:    cfg,
		planID: plan.ID,
		ec: types.EvalContext{
			Query:    plan.Query,
			Section:  plan.SectionOf(subtopic),
			Subtopic: subtopic,
		},
		phase:  phaseLocalOnly,
		budget: newBudget(cfg.MaxEvaluate, cfg.MinTarget, cfg.RelevanceThreshold),
	}

	log := e.logger().With(zap.String("plan_id", plan.ID), zap.String("subtopic", subtopic))
	log.Info("subtopic discovery started")

	if err := e.localPhase(ctx, st, log); err != nil {
		return e.result(st), err
	}
	if st.phase == phaseAPIFallback {
		if err := e.fallbackPhase(ctx, st, log); err != nil {
			return e.result(st), err
		}
	}
	st.phase = phaseDone

	res := e.result(st)
	log.Info("subtopic discovery done",
		zap.Int("local_found", res.LocalFound),
		zap.Int("evaluated", res.Evaluated),
		zap.Int("relevant", res.Relevant),
		zap.Int("remote_fetched", res.RemoteFetched),
	)
	return res, nil
}

// localPhase generates keywords, runs the memoized local search, and
// evaluates the deduplicated candidates.
func (e *Engine) localPhase(ctx context.Context, st *subtopicState, log *zap.Logger) error {
	kws := e.subtopicKeywords(ctx, st, log)
	match := query.Compile(kws, e.Query)
	if match == "" {
		log.Warn("keywords yielded no usable query tokens")
	}

	var local []types.Document
	if match != "" {
		if cached, ok := e.Caches.Search.Get(match); ok {
			local = cached
			log.Debug("local search served from cache", zap.Int("candidates", len(local)))
		} else {
			docs, err := e.Store.SearchDocuments(ctx, match, st.cfg.LocalSearchLimit)
			if err != nil {
				return fmt.Errorf("local search: %w", err)
			}
			local = dedup.Canonical(docs)
			e.Caches.Search.Put(match, local)
			log.Debug("local search complete",
				zap.Int("found", len(docs)), zap.Int("candidates", len(local)))
		}
	}

	st.candidates = local
	st.localFound = len(local)

	if err := e.evaluate(ctx, st, local, log); err != nil {
		return err
	}

	if e.shouldFallback(st) {
		st.phase = phaseAPIFallback
		log.Info("local results insufficient, falling back to corpus",
			zap.Int("local_found", st.localFound),
			zap.Int("evaluated", st.budget.evaluated),
			zap.Int("relevant", st.budget.relevant),
		)
	}
	return nil
}

// shouldFallback holds only when all four predicates do: too few local
// candidates, too few relevant ones, and budget headroom on both axes.
func (e *Engine) shouldFallback(st *subtopicState) bool {
	return st.localFound < st.cfg.LocalFoundThreshold &&
		st.budget.relevant < st.cfg.LocalRelevantThreshold &&
		st.budget.evaluated < st.cfg.MaxEvaluate &&
		st.budget.relevant < st.cfg.MinTarget
}

// fallbackPhase pages through the external corpus under the still-live
// budget, persisting and merge-deduplicating each page before
// evaluating its genuinely new documents. Corpus failures end the
// phase with whatever was gathered; they never abort the run.
func (e *Engine) fallbackPhase(ctx context.Context, st *subtopicState, log *zap.Logger) error {
	q := e.fallbackQuery(ctx, st, log)
	cursor := corpus.FirstCursor

	for st.budget.shouldContinue() && st.remoteFetched < st.cfg.FallbackCap {
		if err := ctx.Err(); err != nil {
			return err
		}

		size := e.pageSize()
		if rem := st.cfg.FallbackCap - st.remoteFetched; rem < size {
			size = rem
		}

		page, err := e.Corpus.Search(ctx, q, size, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("corpus search failed, ending fallback", zap.Error(err))
			return nil
		}
		if len(page.Documents) == 0 {
			break
		}
		st.remoteFetched += len(page.Documents)

		for _, doc := range page.Documents {
			if _, err := e.Store.InsertDocument(ctx, doc, st.planID); err != nil {
				return fmt.Errorf("persisting corpus document %s: %w", doc.ID, err)
			}
		}

		merged, added := dedup.MergeInto(st.candidates, page.Documents)
		st.candidates = merged
		log.Debug("corpus page merged",
			zap.Int("fetched", len(page.Documents)), zap.Int("new", len(added)))

		if err := e.evaluate(ctx, st, added, log); err != nil {
			return err
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return nil
}

// subtopicKeywords asks the generator for search keywords and makes
// sure the subtopic itself is among them. Generator failure degrades to
// the bare subtopic.
func (e *Engine) subtopicKeywords(ctx context.Context, st *subtopicState, log *zap.Logger) []string {
	subtopic := st.ec.Subtopic
	kws, err := e.Keywords.Keywords(ctx, subtopic, st.cfg.KeywordCount)
	if err != nil {
		log.Warn("keyword generation failed, using bare subtopic", zap.Error(err))
		return []string{subtopic}
	}
	if len(kws) == 0 {
		return []string{subtopic}
	}
	for _, kw := range kws {
		if strings.EqualFold(strings.TrimSpace(kw), subtopic) {
			return kws
		}
	}
	return append([]string{subtopic}, kws...)
}

// fallbackQuery builds the free-text corpus query from an alternate
// keyword set framed around finding papers on the subtopic.
func (e *Engine) fallbackQuery(ctx context.Context, st *subtopicState, log *zap.Logger) string {
	topic := "academic papers about " + st.ec.Subtopic
	kws, err := e.Keywords.Keywords(ctx, topic, st.cfg.KeywordCount)
	if err != nil {
		log.Warn("fallback keyword generation failed, using bare subtopic", zap.Error(err))
		return st.ec.Subtopic
	}
	if len(kws) == 0 {
		return st.ec.Subtopic
	}
	return strings.Join(kws, " ")
}

func (e *Engine) result(st *subtopicState) Result {
	return Result{
		Subtopic:      st.ec.Subtopic,
		Section:       st.ec.Section,
		LocalFound:    st.localFound,
		Evaluated:     st.budget.evaluated,
		Relevant:      st.budget.relevant,
		RemoteFetched: st.remoteFetched,
	}
}

func (e *Engine) pageSize() int {
	if e.PageSize > 0 {
		return e.PageSize
	}
	return 25
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func withDefaults(cfg types.DiscoveryConfig) types.DiscoveryConfig {
	if cfg.MinTarget <= 0 {
		cfg.MinTarget = 10
	}
	if cfg.MaxEvaluate <= 0 {
		cfg.MaxEvaluate = 40
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = 6
	}
	if cfg.LocalFoundThreshold <= 0 {
		cfg.LocalFoundThreshold = 10
	}
	if cfg.LocalRelevantThreshold <= 0 {
		cfg.LocalRelevantThreshold = 3
	}
	if cfg.FallbackCap <= 0 {
		cfg.FallbackCap = 20
	}
	if cfg.KeywordCount <= 0 {
		cfg.KeywordCount = 3
	}
	if cfg.LocalSearchLimit <= 0 {
		cfg.LocalSearchLimit = 50
	}
	return cfg
}
