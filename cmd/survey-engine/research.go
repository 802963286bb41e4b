// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/survey-engine/internal/assess"
	"github.com/pdiddy/survey-engine/internal/claude"
	"github.com/pdiddy/survey-engine/internal/corpus"
	"github.com/pdiddy/survey-engine/internal/discover"
	"github.com/pdiddy/survey-engine/internal/fulltext"
	"github.com/pdiddy/survey-engine/internal/keywords"
	"github.com/pdiddy/survey-engine/internal/pipeline"
	"github.com/pdiddy/survey-engine/internal/plan"
	"github.com/pdiddy/survey-engine/internal/report"
	"github.com/pdiddy/survey-engine/internal/store"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run the full survey workflow: plan, discover sources, write the report",
	Long: `Research plans the survey, discovers and evaluates sources for every
subtopic, and writes a cited Markdown report.

The plan is generated from the query unless --plan-file supplies one,
in which case the query argument is not needed. Sources come from the
local index first; subtopics with thin local coverage fall back to the
OpenAlex corpus. A subtopic that fails is skipped, not fatal: the
report covers whatever succeeded.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("output", "", "report file path (default: report.md)")
	researchCmd.Flags().String("plan-file", "", "research an existing plan YAML instead of generating one")
	researchCmd.Flags().Int("max-evaluate", 0, "cap on documents evaluated per subtopic (default 40)")
	researchCmd.Flags().Int("min-target", 0, "relevant documents that satisfy a subtopic (default 10)")
	researchCmd.Flags().Bool("no-fulltext", false, "never fetch full-text excerpts")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	planFile, _ := cmd.Flags().GetString("plan-file")
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" && planFile == "" {
		return fmt.Errorf("provide a research query or --plan-file")
	}

	cfg := pipelineConfig(cmd)
	if n, _ := cmd.Flags().GetInt("max-evaluate"); n > 0 {
		cfg.Discovery.MaxEvaluate = n
	}
	if n, _ := cmd.Flags().GetInt("min-target"); n > 0 {
		cfg.Discovery.MinTarget = n
	}
	if off, _ := cmd.Flags().GetBool("no-fulltext"); off {
		cfg.Discovery.FullTextEnabled = false
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Report.Output = out
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("no API key: set ai.api_key, SURVEY_ENGINE_AI_API_KEY, or .secrets/anthropic-api-key")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	llm := &claude.Client{
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		MaxRetries: cfg.AI.MaxRetries,
	}

	engine := &discover.Engine{
		Store:     st,
		Corpus:    corpus.New(cfg.Corpus),
		Scorer:    &assess.Scorer{LLM: llm},
		Extractor: &assess.Extractor{LLM: llm},
		Keywords:  &keywords.Generator{LLM: llm},
		FullText:  fulltext.New(cfg.FullText),
		Logger:    logger,
		Discovery: cfg.Discovery,
		Query:     cfg.Query,
		PageSize:  cfg.Corpus.PageSize,
	}

	pipe := &pipeline.Pipeline{
		Planner:    &plan.Generator{LLM: llm},
		Store:      st,
		Researcher: engine,
		Reporter:   &report.Builder{Store: st, Threshold: cfg.Discovery.RelevanceThreshold},
		Logger:     logger,
		Output:     cfg.Report.Output,
	}

	ctx := context.Background()

	var sum pipeline.Summary
	if planFile != "" {
		p, err := plan.Load(planFile)
		if err != nil {
			return err
		}
		if err := st.SavePlan(ctx, p); err != nil {
			return err
		}
		sum, err = pipe.RunPlan(ctx, p)
		if err != nil {
			return err
		}
	} else {
		sum, err = pipe.Run(ctx, query)
		if err != nil {
			return err
		}
	}

	printSummary(sum)
	if sum.HasFailures() {
		return fmt.Errorf("%d subtopic(s) failed research", sum.Failed)
	}
	return nil
}

func printSummary(sum pipeline.Summary) {
	fmt.Printf("\n%s\n", sum.Title)
	fmt.Printf("%-44s  %-6s  %-9s  %-8s  %s\n",
		"Subtopic", "Local", "Evaluated", "Relevant", "Remote")
	fmt.Println(strings.Repeat("-", 80))

	for _, r := range sum.Subtopics {
		name := r.Subtopic
		if len(name) > 44 {
			name = name[:41] + "..."
		}
		fmt.Printf("%-44s  %-6d  %-9d  %-8d  %d\n",
			name, r.LocalFound, r.Evaluated, r.Relevant, r.RemoteFetched)
	}

	fmt.Printf("\n%d/%d subtopics researched; report written to %s\n",
		sum.Succeeded, sum.Total(), sum.ReportPath)
}
