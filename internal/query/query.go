// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query compiles keyword sets into FTS5 search expressions.
// Implements: prd002-discovery R2 (query compilation);
//
//	docs/ARCHITECTURE § Discovery.
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// stopwords are dropped from compiled expressions; they carry no search
// signal and inflate OR chains.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"to": {}, "with": {}, "at": {}, "by": {}, "from": {}, "about": {},
	"as": {}, "is": {}, "are": {}, "be": {}, "its": {},
}

// Normalize lowercases, strips reserved punctuation, and collapses
// whitespace in each keyword, dropping empties and duplicates while
// preserving first-occurrence order. The search cache keys on this
// normalized tuple, so Normalize must stay deterministic.
func Normalize(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, kw := range keywords {
		norm := sanitize(kw)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// CacheKey derives the search-cache key for a keyword tuple. Identical
// keyword input always yields the identical key.
func CacheKey(keywords []string) string {
	return strings.Join(Normalize(keywords), "\x1f")
}

// Compile turns an ordered keyword list into a single FTS5 expression.
// Multi-word keywords become NEAR groups within the configured proximity
// window; single tokens longer than the minimum length gain a prefix
// wildcard alternative; tokens shorter than the minimum or in the
// stopword set are dropped. Compile is a pure function: the same input
// produces a byte-identical expression on every call.
func Compile(keywords []string, cfg types.QueryConfig) string {
	window := cfg.ProximityWindow
	if window <= 0 {
		window = 3
	}
	minLen := cfg.MinTokenLength
	if minLen <= 0 {
		minLen = 3
	}

	var parts []string
	for _, kw := range Normalize(keywords) {
		words := contentWords(strings.Fields(kw), minLen)
		switch len(words) {
		case 0:
			continue
		case 1:
			tok := words[0]
			if utf8.RuneCountInString(tok) > minLen {
				parts = append(parts, tok, tok+"*")
			} else {
				parts = append(parts, tok)
			}
		default:
			parts = append(parts, fmt.Sprintf("NEAR(%s, %d)", strings.Join(words, " "), window))
		}
	}
	return strings.Join(parts, " OR ")
}

// contentWords filters out stopwords and tokens below the minimum length.
func contentWords(words []string, minLen int) []string {
	var out []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// sanitize lowercases s and replaces every character outside letters and
// digits with a space. FTS5 treats bare punctuation as query syntax, so
// reserved characters are neutralized by removal rather than escaping.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
