// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext fetches open-access pages and extracts a plain-text
// excerpt for relevance evaluation.
// Implements: prd008-acquisition (R1-R3);
//
//	docs/ARCHITECTURE § Acquisition.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrUnsupported marks content the extractor cannot read, PDFs and
// other binary formats included. Callers fall back to abstract-only
// evaluation (R2.3).
var ErrUnsupported = errors.New("unsupported content type")

const (
	defaultExcerptLimit = 2000

	// maxBodyBytes caps how much of a page is read. The excerpt needs
	// far less than this.
	maxBodyBytes = 2 << 20
)

// Fetcher retrieves full-text excerpts over HTTP.
type Fetcher struct {
	Client       *http.Client
	UserAgent    string
	ExcerptLimit int
}

// New builds a fetcher from full-text configuration.
func New(cfg types.FullTextConfig) *Fetcher {
	return &Fetcher{
		Client:       &http.Client{Timeout: cfg.Timeout},
		UserAgent:    cfg.UserAgent,
		ExcerptLimit: cfg.ExcerptLimit,
	}
}

// Excerpt fetches url and returns up to ExcerptLimit runes of visible
// text (R1.1, R2.1, R2.2). HTML has markup stripped; plain text is
// returned as-is. Anything else is ErrUnsupported.
func (f *Fetcher) Excerpt(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html, text/plain")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching full text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("full text fetch returned HTTP %d", resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = mt
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)

	var text string
	switch {
	case mediaType == "" || strings.HasSuffix(mediaType, "html") || mediaType == "application/xhtml+xml":
		text, err = ExtractText(body)
		if err != nil {
			return "", fmt.Errorf("extracting page text: %w", err)
		}
	case strings.HasPrefix(mediaType, "text/"):
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading full text: %w", err)
		}
		text = strings.Join(strings.Fields(string(raw)), " ")
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
	}

	limit := f.ExcerptLimit
	if limit <= 0 {
		limit = defaultExcerptLimit
	}
	return truncate(text, limit), nil
}

// skipTags are elements whose text content is never visible prose.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"svg":      true,
	"template": true,
}

// ExtractText returns the visible text of an HTML document with
// whitespace collapsed to single spaces.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		b         strings.Builder
		skipDepth int
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String(), nil
			}
			return "", z.Err()

		case html.StartTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] {
				skipDepth++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			for _, word := range strings.Fields(string(z.Text())) {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(word)
			}
		}
	}
}

// truncate cuts s at limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
