package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/survey-engine/internal/claude"
	"github.com/pdiddy/survey-engine/internal/corpus"
	"github.com/pdiddy/survey-engine/internal/indexer"
	"github.com/pdiddy/survey-engine/internal/keywords"
	"github.com/pdiddy/survey-engine/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run the background corpus indexer",
	Long: `Index enriches the local document pool: it takes recent plan queries,
generates search keywords for each, and pages the OpenAlex corpus into
the local store. Indexed documents belong to no particular plan, so
every later survey benefits.

With --once a single cycle runs and the command exits; otherwise the
indexer loops until interrupted.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Bool("once", false, "run a single indexing cycle and exit")
	indexCmd.Flags().Duration("interval", 0, "idle delay between cycles (default 5m)")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Indexer.IdleDelay = interval
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("no API key: set ai.api_key, SURVEY_ENGINE_AI_API_KEY, or .secrets/anthropic-api-key")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ix := &indexer.Indexer{
		Store:  st,
		Corpus: corpus.New(cfg.Corpus),
		Keywords: &keywords.Generator{LLM: &claude.Client{
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			MaxRetries: cfg.AI.MaxRetries,
		}},
		Logger: logger,
		Config: cfg.Indexer,
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		n, err := ix.Cycle(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d new document(s)\n", n)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ix.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
