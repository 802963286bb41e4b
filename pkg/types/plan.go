// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Section is one top-level division of a research plan.
// Per prd001-planning R2.2.
type Section struct {
	// Name is the section heading.
	Name string `json:"section_name" yaml:"section_name"`

	// Subtopics lists the leaf units researched independently within
	// this section. Each drives one discovery pass.
	Subtopics []string `json:"subtopics" yaml:"subtopics"`
}

// Plan is a structured research plan generated from a user query.
// Per prd001-planning R2.1-R2.4.
type Plan struct {
	// ID identifies the plan across runs; assigned at generation time.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Query is the user question the plan answers.
	Query string `json:"query" yaml:"query"`

	// Title is the working title for the final report.
	Title string `json:"title" yaml:"title"`

	// Questions lists the research questions guiding the report.
	Questions []string `json:"research_questions" yaml:"research_questions"`

	// Sections holds the report outline; every section carries at least
	// one subtopic.
	Sections []Section `json:"sections" yaml:"sections"`

	// CreatedAt is the plan creation timestamp.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Subtopics returns every subtopic across all sections in plan order.
func (p Plan) Subtopics() []string {
	var out []string
	for _, s := range p.Sections {
		out = append(out, s.Subtopics...)
	}
	return out
}

// SectionOf returns the section name containing the given subtopic,
// or "" when the subtopic is not part of the plan.
func (p Plan) SectionOf(subtopic string) string {
	for _, s := range p.Sections {
		for _, st := range s.Subtopics {
			if st == subtopic {
				return s.Name
			}
		}
	}
	return ""
}
