// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report assembles the final Markdown report from a plan and
// its stored evaluation records. Assembly is fully deterministic: the
// same plan and findings always produce byte-identical output.
// Implements: prd006-report R1-R3;
//
//	docs/ARCHITECTURE § Report.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// Store is the slice of the document store the builder reads from.
type Store interface {
	FindingsByPlan(ctx context.Context, planID string) ([]types.Finding, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
}

// Builder renders reports for researched plans.
type Builder struct {
	Store Store

	// Threshold is the minimum score a finding needs to be cited in
	// the report body (default 6).
	Threshold int
}

// Build renders the Markdown report for the plan: title, research
// questions, each section's subtopics with cited finding bullets, and
// a references list covering every cited document.
func (b *Builder) Build(ctx context.Context, plan *types.Plan) (string, error) {
	findings, err := b.Store.FindingsByPlan(ctx, plan.ID)
	if err != nil {
		return "", fmt.Errorf("loading findings: %w", err)
	}

	bySubtopic := make(map[string][]types.Finding)
	for _, f := range findings {
		bySubtopic[f.Subtopic] = append(bySubtopic[f.Subtopic], f)
	}

	docs := make(map[string]*types.Document)
	cited := make(map[string]bool)

	var sb strings.Builder
	title := strings.TrimSpace(plan.Title)
	if title == "" {
		title = "Research Report"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(plan.Questions) > 0 {
		sb.WriteString("## Research Questions\n\n")
		for _, q := range plan.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}

	for _, sec := range plan.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", sec.Name)
		for _, sub := range sec.Subtopics {
			fmt.Fprintf(&sb, "### %s\n\n", sub)

			n := 0
			for _, f := range bySubtopic[sub] {
				if f.Score < b.threshold() || strings.TrimSpace(f.Finding) == "" {
					continue
				}
				doc, err := b.document(ctx, docs, f.DocID)
				if err != nil {
					return "", err
				}
				line := flatten(f.Finding)
				if doc != nil {
					line += " " + inTextCite(doc.Authors, doc.Year)
					cited[f.DocID] = true
				}
				fmt.Fprintf(&sb, "- %s\n", line)
				n++
			}
			if n == 0 {
				sb.WriteString("No relevant sources were found for this subtopic.\n")
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## References\n\n")
	entries := b.references(docs, cited)
	if len(entries) == 0 {
		sb.WriteString("No academic sources were cited for this research.\n")
	} else {
		for _, e := range entries {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	return sb.String(), nil
}

// document returns the cited document, fetching it at most once per
// build. Unknown identifiers are remembered as nil so they are not
// re-queried.
func (b *Builder) document(ctx context.Context, cache map[string]*types.Document, id string) (*types.Document, error) {
	if doc, ok := cache[id]; ok {
		return doc, nil
	}
	doc, err := b.Store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", id, err)
	}
	cache[id] = doc
	return doc, nil
}

// references renders the reference entries for all cited documents,
// sorted by author string without regard to case.
func (b *Builder) references(docs map[string]*types.Document, cited map[string]bool) []string {
	ids := make([]string, 0, len(cited))
	for id := range cited {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type ref struct{ key, entry string }
	refs := make([]ref, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		if doc == nil {
			continue
		}
		refs = append(refs, ref{
			key:   strings.ToLower(refAuthors(doc.Authors)),
			entry: refEntry(*doc),
		})
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].key < refs[j].key })

	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.entry
	}
	return out
}

func (b *Builder) threshold() int {
	if b.Threshold > 0 {
		return b.Threshold
	}
	return 6
}

// flatten collapses a multi-line finding into a single report bullet,
// dropping the extractor's own list markers.
func flatten(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
