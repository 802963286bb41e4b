// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan turns a user query into a structured research plan
// through the Claude API, and round-trips plans as YAML files.
// Implements: prd001-planning R1-R4;
//
//	docs/ARCHITECTURE § Planning.
package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/survey-engine/internal/claude"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// ErrInvalid marks a generated or loaded plan whose structure is
// unusable: no sections, a section without subtopics, or template
// placeholder text echoed back by the model. Per prd001-planning R2.3.
var ErrInvalid = errors.New("invalid plan structure")

// promptTmpl asks for the full report outline as strict JSON matching
// the types.Plan field tags, so the reply unmarshals directly.
var promptTmpl = template.Must(template.New("plan").Parse(`You are a research assistant. Based on the user's query: "{{.Query}}", propose a detailed plan for a research report.

The plan should directly address the user's request and allow a comprehensive exploration of the topic. Sections must flow logically, building a coherent narrative. Include an Introduction and a Conclusion section plus at least 4 distinct intermediate sections (for example Literature Review, Methodology, Key Theme Analysis, Case Study). Each section must have at least one specific subtopic relevant to that section's theme. Define at least 4 research questions the report aims to answer.

Output ONLY valid JSON with this exact structure:
{
  "title": "a concise and informative report title",
  "research_questions": ["four or more specific research questions"],
  "sections": [
    {"section_name": "Introduction", "subtopics": ["one or more introductory subtopics"]},
    {"section_name": "a thematic section name", "subtopics": ["specific subtopics for this section"]},
    {"section_name": "Conclusion", "subtopics": ["one or more concluding subtopics"]}
  ]
}

Only return the raw JSON object, no additional text, preamble, or markdown formatting.
`))

// placeholders are literal fragments from the prompt's JSON template; a
// reply echoing them back did not produce a real plan.
var placeholders = []string{
	"string",
	"list",
	"of",
	"...",
	"a concise and informative report title",
	"a thematic section name",
	"one or more introductory subtopics",
	"one or more concluding subtopics",
	"specific subtopics for this section",
	"four or more specific research questions",
}

// LLM is the completion surface the generator calls. Satisfied by
// *claude.Client.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces research plans for user queries.
type Generator struct {
	LLM LLM
}

// Generate builds a research plan for the query. The returned plan has
// a fresh identifier and creation timestamp and always passes Validate.
func (g *Generator) Generate(ctx context.Context, query string) (*types.Plan, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct{ Query string }{Query: query}); err != nil {
		return nil, fmt.Errorf("rendering plan prompt: %w", err)
	}

	reply, err := g.LLM.Complete(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("generating plan for %q: %w", query, err)
	}

	var p types.Plan
	if err := json.Unmarshal([]byte(claude.StripCodeFence(reply)), &p); err != nil {
		return nil, fmt.Errorf("parsing plan reply: %v: %w", err, ErrInvalid)
	}

	p.ID = uuid.NewString()
	p.Query = query
	p.CreatedAt = time.Now().UTC()
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate cleans a plan in place and reports whether its structure is
// usable: at least one section, every section named and holding at
// least one real subtopic. Placeholder echoes and blank entries are
// dropped before the shape check.
func Validate(p *types.Plan) error {
	p.Title = strings.TrimSpace(p.Title)
	if isPlaceholder(p.Title) {
		p.Title = ""
	}
	if p.Title == "" {
		return fmt.Errorf("plan has no title: %w", ErrInvalid)
	}

	p.Questions = cleanList(p.Questions)

	sections := p.Sections[:0]
	for _, s := range p.Sections {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" || isPlaceholder(s.Name) {
			return fmt.Errorf("section with no usable name: %w", ErrInvalid)
		}
		s.Subtopics = cleanList(s.Subtopics)
		if len(s.Subtopics) == 0 {
			return fmt.Errorf("section %q has no subtopics: %w", s.Name, ErrInvalid)
		}
		sections = append(sections, s)
	}
	p.Sections = sections
	if len(p.Sections) == 0 {
		return fmt.Errorf("plan has no sections: %w", ErrInvalid)
	}
	return nil
}

// cleanList trims entries and drops blanks, placeholders, and
// duplicates while preserving order.
func cleanList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || isPlaceholder(s) {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func isPlaceholder(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range placeholders {
		if s == p {
			return true
		}
	}
	return false
}

// Save writes the plan to path as YAML.
func Save(p *types.Plan, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan file: %w", err)
	}
	return nil
}

// Load reads a plan from a YAML file, validating its structure and
// filling in an identifier and timestamp when the file carries none, so
// hand-written plans work too.
func Load(path string) (*types.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var p types.Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return &p, nil
}
