// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceType records which portion of a document a finding was judged on.
// Per prd003-assessment R3.2.
type SourceType string

const (
	SourceAbstract SourceType = "abstract"
	SourceFullText SourceType = "full_text"
)

// Score bounds for relevance verdicts. Scorer failures are recorded at
// ScoreMin so the evaluation loop can proceed. Per prd003-assessment R2.4.
const (
	ScoreMin = 0
	ScoreMax = 10
)

// Finding is the result of evaluating one document against one subtopic:
// a relevance score plus the extracted finding text when the score clears
// the configured threshold. Exactly one Finding is produced per
// (document, subtopic) pair per run, including zero-score evaluations.
// Per prd003-assessment R3.1-R3.3.
type Finding struct {
	// ID identifies the record; assigned at evaluation time.
	ID string `json:"id" yaml:"id"`

	// PlanID references the research plan this evaluation served.
	PlanID string `json:"plan_id" yaml:"plan_id"`

	// DocID references the evaluated document.
	DocID string `json:"doc_id" yaml:"doc_id"`

	// Subtopic is the plan subtopic the document was judged against.
	Subtopic string `json:"subtopic" yaml:"subtopic"`

	// Score is the relevance verdict on the ScoreMin..ScoreMax scale.
	Score int `json:"score" yaml:"score"`

	// Finding is the extracted finding text, empty when the score fell
	// below threshold or extraction reported nothing usable.
	Finding string `json:"finding,omitempty" yaml:"finding,omitempty"`

	// SourceType records whether the verdict was formed on the abstract
	// or on a full-text excerpt.
	SourceType SourceType `json:"source_type" yaml:"source_type"`

	// CreatedAt is the evaluation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Relevant reports whether the finding's score meets threshold.
func (f Finding) Relevant(threshold int) bool {
	return f.Score >= threshold
}

// EvalContext identifies the research context a piece of document text is
// judged within: the user query, the plan section, and the subtopic. The
// content caches scope their keys by it so the same text is never reused
// across unrelated subtopics. Per prd002-discovery R5.2.
type EvalContext struct {
	Query    string
	Section  string
	Subtopic string
}

// Key returns a stable cache-scoping key for the context.
func (ec EvalContext) Key() string {
	return ec.Query + "\x1f" + ec.Section + "\x1f" + ec.Subtopic
}
