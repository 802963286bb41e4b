package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/survey-engine/internal/query"
	"github.com/pdiddy/survey-engine/internal/store"
	"github.com/pdiddy/survey-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the local document index",
	Long: `Search compiles keywords into a full-text expression (quoted phrases,
NEAR for multi-word keywords, OR across keywords) and runs it against
the local index. Results rank by relevance, then citations, then year.

The compiled expression prints to stderr, so piping stdout stays clean.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("keywords", "", "comma-separated search keywords (required)")
	searchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("out", "", "write results to a YAML file instead of stdout")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("keywords")
	var kws []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) == 0 {
		return fmt.Errorf("provide search keywords: --keywords \"a,b,c\"")
	}

	cfg := pipelineConfig(cmd)
	expr := query.Compile(kws, cfg.Query)
	if expr == "" {
		return fmt.Errorf("keywords compile to an empty expression (all tokens too short?)")
	}
	fmt.Fprintln(os.Stderr, "Query:", expr)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	docs, err := st.SearchDocuments(context.Background(), expr, limit)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		data, err := yaml.Marshal(docs)
		if err != nil {
			return fmt.Errorf("marshaling results: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		fmt.Printf("%d result(s) written to %s\n", len(docs), out)
		return nil
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(docs, jsonOutput)
}

func formatSearchOutput(docs []types.Document, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-56s  %-6s  %-6s  %s\n",
		"Rank", "Title", "Year", "Cites", "Origin")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 88))

	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = d.ID
		}
		if len(title) > 56 {
			title = title[:53] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-56s  %-6d  %-6d  %s\n",
			i+1, title, d.Year, d.CitationCount, d.Origin)
	}

	fmt.Fprintf(os.Stdout, "\n%d documents\n", len(docs))
	return nil
}
