package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/survey-engine/internal/claude"
	"github.com/pdiddy/survey-engine/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan [query]",
	Short: "Generate a research plan without researching it",
	Long: `Plan asks Claude for a structured research plan: a report title,
research questions, and sections broken into subtopics. The plan prints
as YAML, or --out writes it to a file that research --plan-file accepts
after any hand edits.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("out", "", "write the plan YAML to this file instead of stdout")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a research query")
	}

	cfg := pipelineConfig(cmd)
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("no API key: set ai.api_key, SURVEY_ENGINE_AI_API_KEY, or .secrets/anthropic-api-key")
	}

	gen := &plan.Generator{LLM: &claude.Client{
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		MaxRetries: cfg.AI.MaxRetries,
	}}

	p, err := gen.Generate(context.Background(), query)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := plan.Save(p, out); err != nil {
			return err
		}
		fmt.Printf("Plan written to %s\n", out)
		return nil
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
