// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assess implements the LLM collaborators that judge candidate
// documents for the discovery engine: the relevance scorer and the
// finding extractor.
// Implements: prd003-assessment R1-R4;
//
//	docs/ARCHITECTURE § Assessment.
package assess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrMalformed marks a model reply that could not be parsed into the
// expected shape. Callers treat it as the minimum score or no finding
// and keep evaluating. Per prd003-assessment R2.4.
var ErrMalformed = errors.New("malformed model response")

// LLM is the completion surface the collaborators call. Satisfied by
// *claude.Client.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Text sent for scoring and extraction is truncated to keep prompts
// inside context limits.
const (
	scoreTextLimit   = 4000
	extractTextLimit = 6000
)

// scorePromptTmpl asks for a relevance verdict in a fixed one-line
// format so the reply parses mechanically. Per prd003-assessment R2.1.
var scorePromptTmpl = template.Must(template.New("score").Parse(`You are judging how relevant a research document is to one specific subtopic.

Overall user query: "{{.Query}}"
Report section: "{{.Section}}"
Subtopic under research: "{{.Subtopic}}"

Assess how directly the following text bears on the subtopic "{{.Subtopic}}". Count direct evidence, arguments, data, methods, or context for this subtopic only; ignore material that serves the broader query but not this subtopic.

Text:
---
{{.Text}}
---

Reply with exactly one line in this format:
Score: [number]/10. Justification: [one sentence on the connection to the subtopic]
`))

// extractPromptTmpl asks for the concrete findings relevant to the
// subtopic, or the single word None. Per prd003-assessment R3.1.
var extractPromptTmpl = template.Must(template.New("extract").Parse(`Analyze the following text from a research document.

Overall user query: "{{.Query}}"
Report section: "{{.Section}}"
Subtopic under research: "{{.Subtopic}}"

Extract the key sentences (at most 2-3) that state concrete findings, evidence, data points, methods, or conclusions bearing directly on the subtopic "{{.Subtopic}}". Use bullet points when there are several distinct findings. Do not restate the text generically.

Text:
---
{{.Text}}
---

If the text contains no specific finding for "{{.Subtopic}}", reply with the single word: None
`))

var scoreRe = regexp.MustCompile(`(?i)score:\s*(\d{1,2})\s*/\s*10`)

// noneReplies are extractor replies meaning "nothing usable here",
// compared after lowercasing and trimming a trailing period.
var noneReplies = map[string]struct{}{
	"none":                       {},
	"no findings":                {},
	"no findings found":          {},
	"no specific findings found": {},
}

// promptData feeds both templates.
type promptData struct {
	Query    string
	Section  string
	Subtopic string
	Text     string
}

// Scorer assigns ordinal relevance scores to document text.
type Scorer struct {
	LLM LLM
}

// Score judges text against the evaluation context and returns a score
// on the ScoreMin..ScoreMax scale. A reply that does not contain a
// parseable verdict returns ScoreMin with ErrMalformed.
func (s *Scorer) Score(ctx context.Context, text string, ec types.EvalContext) (int, error) {
	prompt, err := render(scorePromptTmpl, ec, truncate(text, scoreTextLimit))
	if err != nil {
		return types.ScoreMin, err
	}
	reply, err := s.LLM.Complete(ctx, prompt)
	if err != nil {
		return types.ScoreMin, fmt.Errorf("scoring text: %w", err)
	}
	return parseScore(reply)
}

// parseScore extracts the "Score: n/10" verdict and clamps it to the
// score scale.
func parseScore(reply string) (int, error) {
	m := scoreRe.FindStringSubmatch(reply)
	if m == nil {
		return types.ScoreMin, fmt.Errorf("no score in reply %q: %w", snippet(reply), ErrMalformed)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return types.ScoreMin, fmt.Errorf("score %q: %w", m[1], ErrMalformed)
	}
	if n < types.ScoreMin {
		n = types.ScoreMin
	}
	if n > types.ScoreMax {
		n = types.ScoreMax
	}
	return n, nil
}

// Extractor pulls subtopic-relevant findings out of document text.
type Extractor struct {
	LLM LLM
}

// Extract returns the finding text and true, or "" and false when the
// model reports nothing relevant. The no-finding outcome is a valid
// result, not an error.
func (e *Extractor) Extract(ctx context.Context, text string, ec types.EvalContext) (string, bool, error) {
	prompt, err := render(extractPromptTmpl, ec, truncate(text, extractTextLimit))
	if err != nil {
		return "", false, err
	}
	reply, err := e.LLM.Complete(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("extracting findings: %w", err)
	}

	finding := strings.TrimSpace(reply)
	if finding == "" {
		return "", false, fmt.Errorf("empty extractor reply: %w", ErrMalformed)
	}
	probe := strings.TrimSuffix(strings.ToLower(finding), ".")
	if _, none := noneReplies[probe]; none {
		return "", false, nil
	}
	return finding, true, nil
}

func render(tmpl *template.Template, ec types.EvalContext, text string) (string, error) {
	var buf bytes.Buffer
	data := promptData{Query: ec.Query, Section: ec.Section, Subtopic: ec.Subtopic, Text: text}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// truncate cuts s at limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// snippet shortens a reply for error messages.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
