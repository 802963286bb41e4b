// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.RetryMaxDelay = 5 * time.Millisecond
	os.Exit(m.Run())
}

func swapBase(t *testing.T, url string) {
	t.Helper()
	old := searchBase
	searchBase = url
	t.Cleanup(func() { searchBase = old })
}

const worksFixture = `{
	"meta": {"count": 2, "next_cursor": "IjE3MDAi"},
	"results": [
		{
			"id": "https://openalex.org/W2964141474",
			"doi": "https://doi.org/10.1000/j.test.2021.01.001",
			"title": "Attention Mechanisms in Graph Learning",
			"type": "article",
			"publication_year": 2021,
			"cited_by_count": 311,
			"authorships": [
				{"author": {"id": "https://openalex.org/A1", "display_name": "Maria Petrova"}},
				{"author": {"id": "https://openalex.org/A2", "display_name": "Jun Wei"}}
			],
			"abstract_inverted_index": {"masks": [2], "Attention": [0], "learned": [1]},
			"primary_location": {"source": {"display_name": "Journal of ML", "type": "journal"}},
			"best_oa_location": {"pdf_url": "https://example.org/w1.pdf", "landing_page_url": "https://example.org/w1"},
			"open_access": {"is_oa": true, "oa_url": "https://example.org/oa/w1"}
		},
		{
			"id": "https://openalex.org/W555",
			"title": "Survey of Spectral Methods",
			"type": "preprint",
			"publication_year": 2023,
			"cited_by_count": 4,
			"authorships": [{"author": {"display_name": "A. Okafor"}}],
			"primary_location": {"source": {"display_name": "arXiv", "type": "repository"}},
			"best_oa_location": {"landing_page_url": "https://example.org/w555"},
			"open_access": {"is_oa": true}
		}
	]
}`

func TestSearchMapsWorks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(worksFixture))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client()}
	page, err := c.Search(context.Background(), "graph attention", 25, "")
	require.NoError(t, err)
	require.Len(t, page.Documents, 2)
	assert.Equal(t, "IjE3MDAi", page.NextCursor)

	d := page.Documents[0]
	assert.Equal(t, "10.1000/j.test.2021.01.001", d.ID, "DOI preferred, prefix stripped")
	assert.Equal(t, "Attention Mechanisms in Graph Learning", d.Title)
	assert.Equal(t, "Attention learned masks", d.Abstract, "abstract rebuilt from inverted index")
	assert.Equal(t, []string{"Maria Petrova", "Jun Wei"}, d.Authors)
	assert.Equal(t, 2021, d.Year)
	assert.Equal(t, "Journal of ML", d.Venue)
	assert.Equal(t, []string{"article", "journal"}, d.PublicationTypes)
	assert.Equal(t, 311, d.CitationCount)
	assert.Equal(t, "https://example.org/w1.pdf", d.FullTextURL, "OA PDF wins")
	assert.Equal(t, types.OriginRemote, d.Origin)

	d = page.Documents[1]
	assert.Equal(t, "W555", d.ID, "OpenAlex ID when no DOI")
	assert.Empty(t, d.Abstract)
	assert.Equal(t, []string{"preprint", "repository"}, d.PublicationTypes)
	assert.Equal(t, "https://example.org/w555", d.FullTextURL, "landing page when no PDF")
}

func TestSearchCursorFlow(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := r.URL.Query().Get("cursor")
		cursors = append(cursors, cur)
		w.Header().Set("Content-Type", "application/json")
		if cur == FirstCursor {
			w.Write([]byte(`{"meta": {"count": 1, "next_cursor": "page2"}, "results": [{"id": "https://openalex.org/W1", "title": "One"}]}`))
			return
		}
		w.Write([]byte(`{"meta": {"count": 1, "next_cursor": "page3"}, "results": []}`))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client()}

	page, err := c.Search(context.Background(), "anything", 10, "")
	require.NoError(t, err)
	assert.Equal(t, "page2", page.NextCursor)

	page, err = c.Search(context.Background(), "anything", 10, page.NextCursor)
	require.NoError(t, err)
	assert.Empty(t, page.Documents)
	assert.Empty(t, page.NextCursor, "no results means pagination is done even if a cursor came back")

	assert.Equal(t, []string{"*", "page2"}, cursors)
}

func TestSearchRequestParams(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`{"meta": {}, "results": []}`))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{
		Client:    srv.Client(),
		Email:     "research@example.org",
		UserAgent: "survey-engine/0.1",
	}
	_, err := c.Search(context.Background(), "deep learning", 500, "")
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "deep learning", q.Get("search"))
	assert.Equal(t, "200", q.Get("per-page"), "page size clamped to the API maximum")
	assert.Equal(t, "research@example.org", q.Get("mailto"))
	assert.Equal(t, "survey-engine/0.1", got.Header.Get("User-Agent"))
}

func TestSearchDefaultPageSize(t *testing.T) {
	var perPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per-page")
		w.Write([]byte(`{"meta": {}, "results": []}`))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client()}
	_, err := c.Search(context.Background(), "x", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "25", perPage)
}

func TestSearchEmptyQuery(t *testing.T) {
	c := &OpenAlex{}
	_, err := c.Search(context.Background(), "   ", 10, "")
	assert.Error(t, err)
}

func TestSearchRateLimited(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client(), MaxRetries: 2}
	_, err := c.Search(context.Background(), "x", 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client()}
	_, err := c.Search(context.Background(), "x", 10, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestPaceEnforcesDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {}, "results": []}`))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client(), Pace: 60 * time.Millisecond}

	start := time.Now()
	_, err := c.Search(context.Background(), "x", 10, "")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "x", 10, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond,
		"second call must wait out the inter-call delay")
}

func TestPaceContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {}, "results": []}`))
	}))
	defer srv.Close()
	swapBase(t, srv.URL)

	c := &OpenAlex{Client: srv.Client(), Pace: time.Minute}

	_, err := c.Search(context.Background(), "x", 10, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "x", 10, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name string
		in   map[string][]int
		want string
	}{
		{name: "empty", in: nil, want: ""},
		{
			name: "ordered",
			in:   map[string][]int{"world": {1}, "hello": {0}},
			want: "hello world",
		},
		{
			name: "repeated word",
			in:   map[string][]int{"the": {0, 2}, "more": {1}, "merrier": {3}},
			want: "the more the merrier",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.in))
		})
	}
}

func TestMapWorkSkipsUnidentified(t *testing.T) {
	var w work
	require.NoError(t, json.Unmarshal([]byte(`{"title": "No ID"}`), &w))
	_, ok := mapWork(w)
	assert.False(t, ok)
}
