// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the survey-engine pipeline.
// Implements: prd002-discovery (Document, R1.1-R1.3);
//
//	prd001-planning (Plan, Section, R2.1-R2.4);
//	prd003-assessment (Finding, R3.1-R3.3);
//	prd004-source-store (persisted forms of Document and Finding).
//
// See docs/ARCHITECTURE.md § Data Structures.
package types

// Origin tags where a candidate document was discovered.
// Per prd002-discovery R1.3.
type Origin string

const (
	// OriginLocal marks documents served from the local index.
	OriginLocal Origin = "local"

	// OriginRemote marks documents fetched from the external corpus.
	OriginRemote Origin = "remote"
)

// Document is a candidate source eligible for relevance evaluation.
// Per prd002-discovery R1.1: stable identifier, bibliographic metadata,
// and an origin tag. Two Documents describing the same underlying work
// are collapsed to one canonical instance before evaluation (R3).
type Document struct {
	// ID is the canonical identifier from the providing source
	// (OpenAlex work ID, DOI, or local row key). Unique within a run.
	ID string `json:"id" yaml:"id"`

	// Title is the document title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the document abstract. Empty when the source supplied
	// none; a richer duplicate may fill it in later (enrichment, R1.2).
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when unspecified.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or repository name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// PublicationTypes lists source-reported type labels
	// (e.g. "JournalArticle", "Review", "preprint").
	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`

	// CitationCount is the source-reported citation count, 0 when unknown.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// FullTextURL points at the open-access full text or landing page.
	FullTextURL string `json:"fulltext_url,omitempty" yaml:"fulltext_url,omitempty"`

	// Origin records whether the document came from the local index or
	// the external corpus.
	Origin Origin `json:"origin" yaml:"origin"`
}

// HasAbstract reports whether the document carries usable abstract text.
func (d Document) HasAbstract() bool {
	return d.Abstract != ""
}
