// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords generates alternate search keywords for a topic
// through the Claude API.
// Implements: prd003-assessment R5 (keyword generation).
package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/survey-engine/internal/claude"
)

// promptTmpl requests a raw JSON array so the reply parses without
// heuristics. The topic itself is a legitimate keyword and the model is
// told so.
var promptTmpl = template.Must(template.New("keywords").Parse(`Generate {{.Count}} diverse, effective search keywords or short phrases for academic databases on the topic: "{{.Topic}}".

Favor core concepts, synonyms, and closely related terms. Include the original topic when it works as a keyword on its own.

Output ONLY a valid JSON array of strings, nothing else.
Example: ["keyword one", "alternative phrase two", "related concept three"]
`))

// LLM is the completion surface the generator calls. Satisfied by
// *claude.Client.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces search keyword lists for topics.
type Generator struct {
	LLM LLM
}

// Keywords returns up to n search keywords for topic, in model order.
// Callers fall back to the bare topic when the generator errors or
// returns nothing.
func (g *Generator) Keywords(ctx context.Context, topic string, n int) ([]string, error) {
	var buf bytes.Buffer
	data := struct {
		Topic string
		Count int
	}{Topic: topic, Count: n}
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering keyword prompt: %w", err)
	}

	reply, err := g.LLM.Complete(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("generating keywords for %q: %w", topic, err)
	}

	var raw []string
	if err := json.Unmarshal([]byte(claude.StripCodeFence(reply)), &raw); err != nil {
		return nil, fmt.Errorf("parsing keyword reply for %q: %w", topic, err)
	}

	var out []string
	for _, kw := range raw {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
		if len(out) == n {
			break
		}
	}
	return out, nil
}
