// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives the full research workflow: generate and
// persist a plan, research every subtopic in order, then assemble and
// write the report.
// Implements: prd001-planning R1, prd002-discovery R1, prd006-report R4;
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/discover"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// Planner turns a user query into a research plan.
type Planner interface {
	Generate(ctx context.Context, query string) (*types.Plan, error)
}

// Researcher runs source discovery for one subtopic.
type Researcher interface {
	ResearchSubtopic(ctx context.Context, plan *types.Plan, subtopic string) (discover.Result, error)
}

// Reporter renders the report for a researched plan.
type Reporter interface {
	Build(ctx context.Context, plan *types.Plan) (string, error)
}

// Store is the slice of the document store the pipeline needs.
type Store interface {
	SavePlan(ctx context.Context, p *types.Plan) error
}

// Summary holds the outcome of one workflow run.
type Summary struct {
	PlanID     string
	Title      string
	ReportPath string

	// Subtopics holds the per-subtopic discovery results in plan order,
	// successes only.
	Subtopics []discover.Result

	Succeeded int
	Failed    int
}

// Total returns the number of subtopics processed.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

// HasFailures reports whether any subtopic failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Pipeline wires the workflow stages together.
type Pipeline struct {
	Planner    Planner
	Store      Store
	Researcher Researcher
	Reporter   Reporter
	Logger     *zap.Logger

	// Output is the report file path (default "report.md").
	Output string
}

// Run executes the whole workflow for a user query: plan, research,
// report. The plan is persisted before research starts so evaluation
// records always reference a stored plan.
func (p *Pipeline) Run(ctx context.Context, query string) (Summary, error) {
	plan, err := p.Planner.Generate(ctx, query)
	if err != nil {
		return Summary{}, fmt.Errorf("generating plan: %w", err)
	}
	if err := p.Store.SavePlan(ctx, plan); err != nil {
		return Summary{}, fmt.Errorf("saving plan: %w", err)
	}
	p.logger().Info("plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("title", plan.Title),
		zap.Int("sections", len(plan.Sections)),
	)
	return p.RunPlan(ctx, plan)
}

// RunPlan researches an already generated plan (for instance one loaded
// from a YAML file) and writes the report. A failing subtopic is logged
// and skipped; only cancellation and report assembly failures abort.
func (p *Pipeline) RunPlan(ctx context.Context, plan *types.Plan) (Summary, error) {
	log := p.logger().With(zap.String("plan_id", plan.ID))
	sum := Summary{PlanID: plan.ID, Title: plan.Title}

	subtopics := plan.Subtopics()
	log.Info("researching plan", zap.Int("subtopics", len(subtopics)))

	for _, sub := range subtopics {
		res, err := p.Researcher.ResearchSubtopic(ctx, plan, sub)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Error("subtopic research failed",
				zap.String("subtopic", sub), zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Subtopics = append(sum.Subtopics, res)
		sum.Succeeded++
	}

	text, err := p.Reporter.Build(ctx, plan)
	if err != nil {
		return sum, fmt.Errorf("assembling report: %w", err)
	}

	out := p.Output
	if out == "" {
		out = "report.md"
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return sum, fmt.Errorf("writing report: %w", err)
	}
	sum.ReportPath = out

	log.Info("report written",
		zap.String("path", out),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}
