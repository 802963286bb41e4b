package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pdiddy/survey-engine/internal/corpus"
	"github.com/pdiddy/survey-engine/pkg/types"
)

type fakeStore struct {
	queries   []string
	queryErr  error
	insertErr error

	inserted     []types.Document
	insertedPlan []string
	have         map[string]bool
}

func (s *fakeStore) RecentQueries(ctx context.Context, limit int) ([]string, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.queries) > limit {
		return s.queries[:limit], nil
	}
	return s.queries, nil
}

func (s *fakeStore) InsertDocument(ctx context.Context, doc types.Document, planID string) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if s.have == nil {
		s.have = make(map[string]bool)
	}
	s.inserted = append(s.inserted, doc)
	s.insertedPlan = append(s.insertedPlan, planID)
	if s.have[doc.ID] {
		return false, nil
	}
	s.have[doc.ID] = true
	return true, nil
}

type fakeKeywords struct {
	byTopic map[string][]string
	err     error
}

func (f *fakeKeywords) Keywords(ctx context.Context, topic string, n int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if kws, ok := f.byTopic[topic]; ok {
		return kws, nil
	}
	return []string{topic}, nil
}

type corpusCall struct {
	query    string
	pageSize int
	cursor   string
}

type fakeCorpus struct {
	pages map[string][]corpus.Page
	calls []corpusCall
	err   error
}

func (f *fakeCorpus) Search(ctx context.Context, q string, pageSize int, cursor string) (corpus.Page, error) {
	f.calls = append(f.calls, corpusCall{query: q, pageSize: pageSize, cursor: cursor})
	if f.err != nil {
		return corpus.Page{}, f.err
	}
	ps := f.pages[q]
	if len(ps) == 0 {
		return corpus.Page{}, nil
	}
	f.pages[q] = ps[1:]
	return ps[0], nil
}

func doc(id string) types.Document {
	return types.Document{ID: id, Title: "Work " + id}
}

func testConfig() types.IndexerConfig {
	return types.IndexerConfig{
		MaxQueries:    5,
		PerKeywordCap: 100,
		KeywordDelay:  time.Millisecond,
		QueryDelay:    time.Millisecond,
		IdleDelay:     5 * time.Millisecond,
	}
}

func TestCycleIndexesRecentQueries(t *testing.T) {
	store := &fakeStore{queries: []string{"graph neural networks", "perovskite cells"}}
	kw := &fakeKeywords{
		byTopic: map[string][]string{
			"graph neural networks": {"graph sampling", "message passing"},
			"perovskite cells":      {"perovskite stability"},
		},
	}
	cp := &fakeCorpus{pages: map[string][]corpus.Page{
		"graph sampling":       {{Documents: []types.Document{doc("d1"), doc("d2")}}},
		"message passing":      {{Documents: []types.Document{doc("d2"), doc("d3")}}},
		"perovskite stability": {{Documents: []types.Document{doc("d4")}}},
	}}

	ix := &Indexer{Store: store, Corpus: cp, Keywords: kw, Config: testConfig()}
	n, err := ix.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if n != 2 {
		t.Errorf("processed = %d, want 2", n)
	}

	// d2 appears under two keywords of the same query: saved once.
	wantIDs := []string{"d1", "d2", "d3", "d4"}
	if len(store.inserted) != len(wantIDs) {
		t.Fatalf("inserted %d documents, want %d", len(store.inserted), len(wantIDs))
	}
	for i, id := range wantIDs {
		if store.inserted[i].ID != id {
			t.Errorf("inserted[%d] = %s, want %s", i, store.inserted[i].ID, id)
		}
	}
	for _, planID := range store.insertedPlan {
		if planID != "" {
			t.Errorf("indexer documents must stay unbound, got plan %q", planID)
		}
	}

	wantQueries := []string{"graph sampling", "message passing", "perovskite stability"}
	if len(cp.calls) != len(wantQueries) {
		t.Fatalf("corpus calls = %+v", cp.calls)
	}
	for i, q := range wantQueries {
		if cp.calls[i].query != q {
			t.Errorf("call[%d] query = %q, want %q", i, cp.calls[i].query, q)
		}
	}
}

func TestCycleSkipsQueriesAlreadyIndexed(t *testing.T) {
	store := &fakeStore{queries: []string{"q1"}}
	cp := &fakeCorpus{pages: map[string][]corpus.Page{
		"q1": {{Documents: []types.Document{doc("d1")}}},
	}}
	ix := &Indexer{Store: store, Corpus: cp, Keywords: &fakeKeywords{}, Config: testConfig()}

	ctx := context.Background()
	if n, err := ix.Cycle(ctx); err != nil || n != 1 {
		t.Fatalf("first cycle = (%d, %v)", n, err)
	}
	calls := len(cp.calls)

	n, err := ix.Cycle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second cycle processed %d, want 0", n)
	}
	if len(cp.calls) != calls {
		t.Error("second cycle should not touch the corpus")
	}

	// A genuinely new query is picked up by the next cycle.
	store.queries = []string{"q1", "q2"}
	n, err = ix.Cycle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("third cycle processed %d, want 1 (only the new query)", n)
	}
	if cp.calls[len(cp.calls)-1].query != "q2" {
		t.Errorf("last corpus query = %q, want q2", cp.calls[len(cp.calls)-1].query)
	}
}

func TestIndexKeywordHonorsCap(t *testing.T) {
	cfg := testConfig()
	cfg.PerKeywordCap = 3
	store := &fakeStore{queries: []string{"q1"}}
	cp := &fakeCorpus{pages: map[string][]corpus.Page{
		"q1": {
			{Documents: []types.Document{doc("d1"), doc("d2")}, NextCursor: "c2"},
			{Documents: []types.Document{doc("d3")}, NextCursor: "c3"},
		},
	}}
	ix := &Indexer{Store: store, Corpus: cp, Keywords: &fakeKeywords{}, Config: cfg}

	if _, err := ix.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(cp.calls) != 2 {
		t.Fatalf("corpus calls = %d, want 2 (cap reached)", len(cp.calls))
	}
	if cp.calls[0].pageSize != 3 || cp.calls[1].pageSize != 1 {
		t.Errorf("page sizes = %d, %d; want 3, 1", cp.calls[0].pageSize, cp.calls[1].pageSize)
	}
	if cp.calls[0].cursor != corpus.FirstCursor || cp.calls[1].cursor != "c2" {
		t.Errorf("cursors = %q, %q", cp.calls[0].cursor, cp.calls[1].cursor)
	}
}

func TestCycleCorpusFailureSkipsKeyword(t *testing.T) {
	store := &fakeStore{queries: []string{"q1"}}
	cp := &fakeCorpus{err: errors.New("dial tcp: connection refused")}
	ix := &Indexer{Store: store, Corpus: cp, Keywords: &fakeKeywords{}, Config: testConfig()}

	n, err := ix.Cycle(context.Background())
	if err != nil {
		t.Fatalf("corpus failure must not abort the cycle: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted = %d, want 0", len(store.inserted))
	}
}

func TestCycleStoreFailurePropagates(t *testing.T) {
	store := &fakeStore{queries: []string{"q1"}, insertErr: errors.New("disk full")}
	cp := &fakeCorpus{pages: map[string][]corpus.Page{
		"q1": {{Documents: []types.Document{doc("d1")}}},
	}}
	ix := &Indexer{Store: store, Corpus: cp, Keywords: &fakeKeywords{}, Config: testConfig()}

	if _, err := ix.Cycle(context.Background()); err == nil {
		t.Fatal("store failure must propagate")
	}
}

func TestCycleQueryListFailurePropagates(t *testing.T) {
	store := &fakeStore{queryErr: errors.New("db locked")}
	ix := &Indexer{Store: store, Corpus: &fakeCorpus{}, Keywords: &fakeKeywords{}, Config: testConfig()}
	if _, err := ix.Cycle(context.Background()); err == nil {
		t.Fatal("query listing failure must propagate")
	}
}

func TestCycleKeywordFailureFallsBackToQuery(t *testing.T) {
	store := &fakeStore{queries: []string{"dark matter"}}
	cp := &fakeCorpus{pages: map[string][]corpus.Page{
		"dark matter": {{Documents: []types.Document{doc("d1")}}},
	}}
	kw := &fakeKeywords{err: errors.New("api unreachable")}
	ix := &Indexer{Store: store, Corpus: cp, Keywords: kw, Config: testConfig()}

	if _, err := ix.Cycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(cp.calls) != 1 || cp.calls[0].query != "dark matter" {
		t.Errorf("corpus calls = %+v, want one call with the bare query", cp.calls)
	}
}

func TestCycleContextCanceled(t *testing.T) {
	store := &fakeStore{queries: []string{"q1"}}
	ix := &Indexer{Store: store, Corpus: &fakeCorpus{}, Keywords: &fakeKeywords{}, Config: testConfig()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ix.Cycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	ix := &Indexer{Store: store, Corpus: &fakeCorpus{}, Keywords: &fakeKeywords{}, Config: testConfig()}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := ix.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
