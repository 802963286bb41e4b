// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus provides rate-limited, paginated access to the OpenAlex
// works API, the external document corpus behind discovery fallback.
// Implements: prd005-corpus R1-R5;
//
//	docs/ARCHITECTURE § Corpus.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/survey-engine/internal/httputil"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// searchBase is the OpenAlex Works search endpoint. Declared as a var so
// tests can substitute an httptest server.
var searchBase = "https://api.openalex.org/works"

// ErrRateLimited signals that the corpus refused the call even after the
// backoff retries were exhausted. Callers treat it as "no more documents
// available" for the current phase. Per prd005-corpus R3.2.
var ErrRateLimited = errors.New("corpus rate limited")

// FirstCursor starts deep pagination.
const FirstCursor = "*"

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// Page is one page of corpus results. An empty NextCursor means the
// result set is exhausted.
type Page struct {
	Documents  []types.Document
	NextCursor string
}

// OpenAlex queries the OpenAlex API with cursor pagination, 429 backoff,
// and a minimum inter-call delay. The pacing gate carries its own mutex
// because the discovery engine and the background indexer may share one
// client.
type OpenAlex struct {
	Client     *http.Client
	Email      string
	UserAgent  string
	Pace       time.Duration
	MaxRetries int

	mu       sync.Mutex
	nextCall time.Time
}

// New builds a client from corpus configuration.
func New(cfg types.CorpusConfig) *OpenAlex {
	return &OpenAlex{
		Client:     &http.Client{Timeout: cfg.Timeout},
		Email:      cfg.Email,
		UserAgent:  cfg.UserAgent,
		Pace:       cfg.InterCallDelay,
		MaxRetries: cfg.MaxRetries,
	}
}

// Search fetches one page of works matching query. Pass FirstCursor (or
// "") to begin and the previous page's NextCursor to continue. Results
// are tagged origin=remote; persistence is the caller's responsibility.
// The inter-call delay elapses in real time before every request,
// successful or not.
func (c *OpenAlex) Search(ctx context.Context, query string, pageSize int, cursor string) (Page, error) {
	if strings.TrimSpace(query) == "" {
		return Page{}, fmt.Errorf("empty corpus query")
	}
	if cursor == "" {
		cursor = FirstCursor
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if err := c.pace(ctx); err != nil {
		return Page{}, err
	}

	params := url.Values{
		"search":   {query},
		"per-page": {strconv.Itoa(pageSize)},
		"cursor":   {cursor},
	}
	if c.Email != "" {
		params.Set("mailto", c.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBase+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return Page{}, fmt.Errorf("OpenAlex request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Page{}, fmt.Errorf("OpenAlex after %d retries: %w", c.MaxRetries, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return Page{}, fmt.Errorf("OpenAlex returned HTTP %d", resp.StatusCode)
	}

	var wr worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return Page{}, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	page := Page{}
	for _, w := range wr.Results {
		doc, ok := mapWork(w)
		if !ok {
			continue
		}
		page.Documents = append(page.Documents, doc)
	}
	if len(wr.Results) > 0 {
		page.NextCursor = wr.Meta.NextCursor
	}
	return page, nil
}

// pace reserves the next call slot and sleeps until it opens. Slots are
// handed out under the mutex so concurrent callers serialize correctly.
func (c *OpenAlex) pace(ctx context.Context) error {
	if c.Pace <= 0 {
		return nil
	}
	c.mu.Lock()
	start := c.nextCall
	now := time.Now()
	if start.Before(now) {
		start = now
	}
	c.nextCall = start.Add(c.Pace)
	c.mu.Unlock()

	wait := time.Until(start)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// mapWork converts one OpenAlex work into a candidate document. Works
// without any identifier are skipped.
func mapWork(w work) (types.Document, bool) {
	doc := types.Document{
		Title:         w.Title,
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		Year:          w.PublicationYear,
		Venue:         w.PrimaryLocation.Source.DisplayName,
		CitationCount: w.CitedByCount,
		Origin:        types.OriginRemote,
	}

	// Prefer the bare DOI since OpenAlex is DOI-centric.
	switch {
	case w.DOI != "":
		doc.ID = strings.TrimPrefix(w.DOI, "https://doi.org/")
	case w.ID != "":
		doc.ID = strings.TrimPrefix(w.ID, "https://openalex.org/")
	default:
		return types.Document{}, false
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			doc.Authors = append(doc.Authors, a.Author.DisplayName)
		}
	}

	if w.Type != "" {
		doc.PublicationTypes = append(doc.PublicationTypes, w.Type)
	}
	if st := w.PrimaryLocation.Source.Type; st != "" && st != w.Type {
		doc.PublicationTypes = append(doc.PublicationTypes, st)
	}

	// Best full-text pointer: OA PDF, then landing page, then the
	// generic OA URL.
	switch {
	case w.BestOALocation.PDFURL != "":
		doc.FullTextURL = w.BestOALocation.PDFURL
	case w.BestOALocation.LandingPageURL != "":
		doc.FullTextURL = w.BestOALocation.LandingPageURL
	case w.OpenAccess.OAURL != "":
		doc.FullTextURL = w.OpenAccess.OAURL
	}

	return doc, true
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the list of
// positions where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type worksResponse struct {
	Meta    worksMeta `json:"meta"`
	Results []work    `json:"results"`
}

type worksMeta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

type work struct {
	ID                    string           `json:"id"`
	DOI                   string           `json:"doi"`
	Title                 string           `json:"title"`
	Type                  string           `json:"type"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	Authorships           []workAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	PrimaryLocation       workLocation     `json:"primary_location"`
	BestOALocation        oaLocation       `json:"best_oa_location"`
	OpenAccess            workOpenAccess   `json:"open_access"`
}

type workAuthorship struct {
	Author workAuthor `json:"author"`
}

type workAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type workLocation struct {
	Source workSource `json:"source"`
}

type workSource struct {
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

type oaLocation struct {
	PDFURL         string `json:"pdf_url"`
	LandingPageURL string `json:"landing_page_url"`
}

type workOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}
