// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses duplicate versions of the same work to one
// canonical document. Implements: prd002-discovery R3 (version
// deduplication);
//
//	docs/ARCHITECTURE § Discovery.
package dedup

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// publishedTypes lists venue type labels that count as peer-reviewed or
// formally published when ranking versions. Labels are compared after
// stripping case and punctuation.
var publishedTypes = map[string]struct{}{
	"article":            {},
	"journalarticle":     {},
	"review":             {},
	"conference":         {},
	"proceedings":        {},
	"proceedingsarticle": {},
	"book":               {},
	"bookchapter":        {},
	"booksection":        {},
	"monograph":          {},
}

// Canonical groups documents that describe the same underlying work and
// keeps exactly one canonical version per group, enriched with any
// metadata the losing versions carried. Output preserves the position at
// which each group was first seen; the winner within a group does not
// depend on input order.
func Canonical(docs []types.Document) []types.Document {
	var groups [][]types.Document
	for _, d := range docs {
		var matched []int
		for gi, g := range groups {
			for _, m := range g {
				if sameWork(d, m) {
					matched = append(matched, gi)
					break
				}
			}
		}
		if len(matched) == 0 {
			groups = append(groups, []types.Document{d})
			continue
		}
		first := matched[0]
		groups[first] = append(groups[first], d)
		// A document can bridge previously separate groups; fold the
		// later groups into the earliest one.
		for i := len(matched) - 1; i >= 1; i-- {
			gi := matched[i]
			groups[first] = append(groups[first], groups[gi]...)
			groups = append(groups[:gi], groups[gi+1:]...)
		}
	}

	out := make([]types.Document, 0, len(groups))
	for _, g := range groups {
		out = append(out, collapse(g))
	}
	return out
}

// MergeInto folds freshly fetched documents into an existing candidate
// set. An incoming document matching a document already in base (by
// identifier or same-work test) is absorbed into it: base members may
// already be evaluated, so their identity must not change. Genuinely new
// works are canonicalized among themselves and appended. Returns the
// combined set plus the documents that were newly added.
func MergeInto(base, incoming []types.Document) (merged, added []types.Document) {
	merged = append([]types.Document(nil), base...)
	for _, inc := range Canonical(incoming) {
		if i := indexOfWork(merged, inc); i >= 0 {
			enrichFrom(&merged[i], inc)
			continue
		}
		merged = append(merged, inc)
		added = append(added, inc)
	}
	return merged, added
}

// collapse sorts a group best-first by the composite version key and
// returns the winner with empty fields filled from the losers.
func collapse(group []types.Document) types.Document {
	sorted := append([]types.Document(nil), group...)
	sort.Slice(sorted, func(i, j int) bool {
		return keyOf(sorted[i]).beats(keyOf(sorted[j]))
	})
	winner := sorted[0]
	for _, loser := range sorted[1:] {
		enrichFrom(&winner, loser)
	}
	return winner
}

// versionKey is the composite sort key ranking versions of one work.
// Fields are compared in declaration order, higher first, with the
// identifier as an ascending tiebreak so the order is strict and total.
type versionKey struct {
	published   int
	citations   int
	hasAbstract int
	hasFullText int
	year        int
	id          string
}

func keyOf(d types.Document) versionKey {
	k := versionKey{
		citations: d.CitationCount,
		year:      d.Year,
		id:        d.ID,
	}
	for _, t := range d.PublicationTypes {
		if _, ok := publishedTypes[stripLabel(t)]; ok {
			k.published = 1
			break
		}
	}
	if d.HasAbstract() {
		k.hasAbstract = 1
	}
	if d.FullTextURL != "" {
		k.hasFullText = 1
	}
	return k
}

func (k versionKey) beats(o versionKey) bool {
	if k.published != o.published {
		return k.published > o.published
	}
	if k.citations != o.citations {
		return k.citations > o.citations
	}
	if k.hasAbstract != o.hasAbstract {
		return k.hasAbstract > o.hasAbstract
	}
	if k.hasFullText != o.hasFullText {
		return k.hasFullText > o.hasFullText
	}
	if k.year != o.year {
		return k.year > o.year
	}
	return k.id < o.id
}

// sameWork reports whether two documents describe the same underlying
// work: matching normalized titles, at least one shared author surname,
// and publication years equal or unspecified on either side.
func sameWork(a, b types.Document) bool {
	ta, tb := normalizeTitle(a.Title), normalizeTitle(b.Title)
	if ta == "" || ta != tb {
		return false
	}
	if !shareSurname(a.Authors, b.Authors) {
		return false
	}
	return a.Year == 0 || b.Year == 0 || a.Year == b.Year
}

func indexOfWork(docs []types.Document, d types.Document) int {
	for i := range docs {
		if docs[i].ID == d.ID || sameWork(docs[i], d) {
			return i
		}
	}
	return -1
}

// enrichFrom fills dst's missing metadata from another version of the
// same work. Citation counts keep the higher figure; everything else is
// fill-if-empty.
func enrichFrom(dst *types.Document, src types.Document) {
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if src.CitationCount > dst.CitationCount {
		dst.CitationCount = src.CitationCount
	}
	if dst.FullTextURL == "" {
		dst.FullTextURL = src.FullTextURL
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if len(dst.PublicationTypes) == 0 {
		dst.PublicationTypes = src.PublicationTypes
	}
}

// shareSurname reports whether the author lists overlap by at least one
// normalized surname. Empty author lists never match.
func shareSurname(a, b []string) bool {
	sa := surnames(a)
	if len(sa) == 0 {
		return false
	}
	for _, name := range b {
		if s := surname(name); s != "" {
			if _, ok := sa[s]; ok {
				return true
			}
		}
	}
	return false
}

func surnames(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		if s := surname(n); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// surname extracts the family name from a display name, handling both
// "First Last" and "Last, First" forms.
func surname(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	} else if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[len(fields)-1]
	}
	return stripLabel(name)
}

// normalizeTitle lowercases a title, strips everything but letters,
// digits, and spaces, and collapses runs of whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// stripLabel lowercases s and removes everything but letters and digits.
func stripLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
