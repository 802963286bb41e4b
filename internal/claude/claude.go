// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package claude provides the shared Claude Messages API client used by
// the planning, assessment, and keyword stages.
// Implements: prd003-assessment R5.1-R5.3.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// apiURL is the Claude API endpoint. Package-level var for test substitution.
var apiURL = "https://api.anthropic.com/v1/messages"

// backoffBase is the base delay between retry attempts. Tests override
// this to keep the suite fast.
var backoffBase = time.Second

const (
	defaultMaxRetries = 3
	maxTokens         = 4096
	anthropicVersion  = "2023-06-01"
)

// Client calls the Claude Messages API with retry. The zero HTTPClient
// falls back to http.DefaultClient.
type Client struct {
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

// request is the request body for the Claude Messages API.
type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

// message is a single message in the Claude API conversation.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// response is the response body from the Claude Messages API.
type response struct {
	Content []contentBlock `json:"content"`
}

// contentBlock is a content block in the Claude API response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one user prompt and returns the model's text reply,
// retrying failed calls with exponential backoff (1 s, 2 s, 4 s by
// default). The context is honored both during requests and between
// attempts.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		text, err := c.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt < maxRetries {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return "", fmt.Errorf("all %d attempts failed: %w", maxRetries, lastErr)
}

// complete performs a single Messages API call.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp response
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}

// StripCodeFence removes a Markdown code fence wrapping a model reply,
// tolerating a language tag after the opening backticks. Replies without
// a fence pass through trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop a language tag such as "json" on the fence line.
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
