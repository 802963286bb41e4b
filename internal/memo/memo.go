// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package memo provides the run-scoped caches used by the discovery
// engine: content-addressed memoization of relevance scores and extracted
// findings, and keyword-tuple memoization of local search results.
// Implements: prd002-discovery R5 (caching);
//
//	docs/ARCHITECTURE § Discovery.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// searchCacheLimit bounds the search cache; when exceeded the whole cache
// is cleared rather than evicting piecemeal, since a run rarely repeats
// more than a handful of keyword tuples.
const searchCacheLimit = 50

// Key addresses one cached judgment: the evaluation context joined with a
// fingerprint of the exact text that was judged.
type Key struct {
	Context     string
	Fingerprint string
}

// KeyFor builds the cache key for judging text within an evaluation
// context.
func KeyFor(ec types.EvalContext, text string) Key {
	return Key{Context: ec.Key(), Fingerprint: Fingerprint(text)}
}

// Fingerprint hashes whitespace-normalized, case-folded text. Two texts
// differing only in case or spacing share a fingerprint.
func Fingerprint(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// ScoreCache memoizes relevance scores. Shared across all subtopics of
// one run, never persisted.
type ScoreCache struct {
	m map[Key]int
}

func NewScoreCache() *ScoreCache {
	return &ScoreCache{m: make(map[Key]int)}
}

func (c *ScoreCache) Get(k Key) (int, bool) {
	score, ok := c.m[k]
	return score, ok
}

func (c *ScoreCache) Put(k Key, score int) {
	c.m[k] = score
}

func (c *ScoreCache) Len() int { return len(c.m) }

// FindingCache memoizes extraction results. The no-finding outcome is
// cached explicitly so a document that yielded nothing is not re-sent to
// the extractor.
type FindingCache struct {
	m map[Key]findingEntry
}

type findingEntry struct {
	text  string
	found bool
}

func NewFindingCache() *FindingCache {
	return &FindingCache{m: make(map[Key]findingEntry)}
}

// Get returns the cached finding text, whether a finding was present, and
// whether the key was cached at all.
func (c *FindingCache) Get(k Key) (text string, found, ok bool) {
	e, ok := c.m[k]
	return e.text, e.found, ok
}

func (c *FindingCache) Put(k Key, text string, found bool) {
	c.m[k] = findingEntry{text: text, found: found}
}

func (c *FindingCache) Len() int { return len(c.m) }

// SearchCache memoizes ranked local search results per normalized keyword
// tuple for the duration of one run.
type SearchCache struct {
	m map[string][]types.Document
}

func NewSearchCache() *SearchCache {
	return &SearchCache{m: make(map[string][]types.Document)}
}

// Get returns a copy of the cached result list so callers may reorder or
// enrich their working set without contaminating the cache.
func (c *SearchCache) Get(key string) ([]types.Document, bool) {
	docs, ok := c.m[key]
	if !ok {
		return nil, false
	}
	return append([]types.Document(nil), docs...), true
}

func (c *SearchCache) Put(key string, docs []types.Document) {
	if len(c.m) >= searchCacheLimit {
		c.m = make(map[string][]types.Document)
	}
	c.m[key] = append([]types.Document(nil), docs...)
}

func (c *SearchCache) Len() int { return len(c.m) }

// Caches bundles one run's cache set. A fresh bundle is constructed at
// the start of every workflow run; nothing inside survives the run.
type Caches struct {
	Scores   *ScoreCache
	Findings *FindingCache
	Search   *SearchCache
}

func NewCaches() *Caches {
	return &Caches{
		Scores:   NewScoreCache(),
		Findings: NewFindingCache(),
		Search:   NewSearchCache(),
	}
}
