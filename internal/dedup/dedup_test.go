package dedup

import (
	"testing"

	"github.com/pdiddy/survey-engine/pkg/types"
)

func preprintDoc() types.Document {
	return types.Document{
		ID:               "arxiv:2104.13478",
		Title:            "Graph Neural Networks: A Review",
		Authors:          []string{"Maria Bronstein", "Wei Zhang"},
		Year:             2021,
		PublicationTypes: []string{"preprint"},
		CitationCount:    10,
		Origin:           types.OriginLocal,
	}
}

func publishedDoc() types.Document {
	return types.Document{
		ID:               "W2964141474",
		Title:            "Graph Neural Networks: A Review",
		Abstract:         "We review graph neural network architectures.",
		Authors:          []string{"Maria Bronstein", "Wei Zhang", "Ana Costa"},
		Year:             2021,
		Venue:            "IEEE Transactions on Neural Networks",
		PublicationTypes: []string{"JournalArticle"},
		CitationCount:    40,
		Origin:           types.OriginRemote,
	}
}

func TestCanonicalSelectsPublishedVersion(t *testing.T) {
	got := Canonical([]types.Document{preprintDoc(), publishedDoc()})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != "W2964141474" {
		t.Errorf("winner = %s, want the published version", got[0].ID)
	}
	if !got[0].HasAbstract() {
		t.Error("winner lost its abstract")
	}
}

func TestCanonicalWinnerIndependentOfInputOrder(t *testing.T) {
	a := preprintDoc()
	b := publishedDoc()
	c := publishedDoc()
	c.ID = "10.1109/TNN.2021.123"
	c.CitationCount = 40
	c.Abstract = ""

	orders := [][]types.Document{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for i, docs := range orders {
		got := Canonical(docs)
		if len(got) != 1 {
			t.Fatalf("order %d: len = %d, want 1", i, len(got))
		}
		// b and c tie on published type and citations; b has the
		// abstract and must win every time.
		if got[0].ID != "W2964141474" {
			t.Errorf("order %d: winner = %s, want W2964141474", i, got[0].ID)
		}
	}
}

func TestVersionKeyTransitive(t *testing.T) {
	a := keyOf(publishedDoc())
	mid := publishedDoc()
	mid.CitationCount = 20
	b := keyOf(mid)
	c := keyOf(preprintDoc())

	if !a.beats(b) || !b.beats(c) {
		t.Fatal("expected a > b > c under the composite key")
	}
	if !a.beats(c) {
		t.Error("composite key is not transitive: a > b > c but a !> c")
	}
	if c.beats(a) || b.beats(a) {
		t.Error("composite key is not antisymmetric")
	}
}

func TestSameWork(t *testing.T) {
	base := publishedDoc()
	tests := []struct {
		name   string
		mutate func(*types.Document)
		want   bool
	}{
		{"identical metadata", func(d *types.Document) {}, true},
		{"title punctuation differs", func(d *types.Document) {
			d.Title = "graph neural networks — a review"
		}, true},
		{"different title", func(d *types.Document) {
			d.Title = "Attention Is All You Need"
		}, false},
		{"no shared surname", func(d *types.Document) {
			d.Authors = []string{"Petra Novak"}
		}, false},
		{"comma name form still matches", func(d *types.Document) {
			d.Authors = []string{"Bronstein, M."}
		}, true},
		{"year unspecified on one side", func(d *types.Document) {
			d.Year = 0
		}, true},
		{"conflicting years", func(d *types.Document) {
			d.Year = 2018
		}, false},
		{"no authors at all", func(d *types.Document) {
			d.Authors = nil
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := publishedDoc()
			other.ID = "other"
			tt.mutate(&other)
			if got := sameWork(base, other); got != tt.want {
				t.Errorf("sameWork = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanonicalKeepsDistinctWorks(t *testing.T) {
	a := publishedDoc()
	b := publishedDoc()
	b.ID = "W999"
	b.Authors = []string{"Petra Novak"}

	got := Canonical([]types.Document{a, b})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (same title, disjoint authors)", len(got))
	}
}

func TestCanonicalEnrichesWinnerFromLosers(t *testing.T) {
	winner := publishedDoc()
	winner.Abstract = ""
	winner.FullTextURL = ""
	loser := preprintDoc()
	loser.Abstract = "Preprint abstract text."
	loser.FullTextURL = "https://arxiv.org/abs/2104.13478"

	got := Canonical([]types.Document{loser, winner})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Abstract != "Preprint abstract text." {
		t.Errorf("abstract not filled from loser: %q", got[0].Abstract)
	}
	if got[0].FullTextURL == "" {
		t.Error("full-text URL not filled from loser")
	}
	if got[0].CitationCount != 40 {
		t.Errorf("citation count = %d, want 40", got[0].CitationCount)
	}
}

func TestMergeIntoAbsorbsIntoExisting(t *testing.T) {
	base := []types.Document{preprintDoc()}

	remote := publishedDoc()
	fresh := types.Document{
		ID:      "W555",
		Title:   "Sparse Attention Kernels",
		Authors: []string{"Ana Costa"},
		Year:    2023,
		Origin:  types.OriginRemote,
	}

	merged, added := MergeInto(base, []types.Document{remote, fresh})
	if len(merged) != 2 {
		t.Fatalf("merged len = %d, want 2", len(merged))
	}
	// The already-present (possibly already-evaluated) version keeps its
	// identity; the remote duplicate only enriches it.
	if merged[0].ID != "arxiv:2104.13478" {
		t.Errorf("anchor ID changed to %s", merged[0].ID)
	}
	if merged[0].Abstract == "" {
		t.Error("anchor not enriched with remote abstract")
	}
	if merged[0].CitationCount != 40 {
		t.Errorf("anchor citations = %d, want 40", merged[0].CitationCount)
	}
	if len(added) != 1 || added[0].ID != "W555" {
		t.Fatalf("added = %+v, want only W555", added)
	}
}

func TestMergeIntoCollapsesWithinBatch(t *testing.T) {
	v1 := publishedDoc()
	v2 := preprintDoc()

	merged, added := MergeInto(nil, []types.Document{v2, v1})
	if len(merged) != 1 || len(added) != 1 {
		t.Fatalf("merged=%d added=%d, want 1/1", len(merged), len(added))
	}
	if added[0].ID != "W2964141474" {
		t.Errorf("batch winner = %s, want the published version", added[0].ID)
	}
}
