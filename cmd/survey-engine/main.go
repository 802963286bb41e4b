// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the survey-engine CLI.
// Implements: prd001-planning, prd002-discovery, prd006-report,
//             prd007-indexer (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/survey-engine/internal/secrets"
	"github.com/pdiddy/survey-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "survey-engine/0.1"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built once per invocation in the root PersistentPreRunE;
// --verbose lowers it to debug level.
var logger *zap.Logger

// secretDefault returns fallback when it is non-empty, otherwise the
// value loaded from .secrets/ under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the survey-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "survey-engine",
	Short: "Claude-assisted literature survey reports",
	Long: `survey-engine builds literature survey reports. Claude plans the survey
and judges sources; the engine searches a local SQLite index, falls back
to the OpenAlex corpus when local coverage is thin, and compiles scored
findings into a cited Markdown report.

Each stage is reachable on its own: plan generates a research plan,
search queries the local index, index runs the background corpus
indexer, and research drives the whole workflow end to end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./survey-engine.yaml or ~/.config/survey-engine/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: ./survey.db)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("survey-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "survey-engine"))
		}
	}

	viper.SetEnvPrefix("SURVEY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("discovery.min_target", 10)
	viper.SetDefault("discovery.max_evaluate", 40)
	viper.SetDefault("discovery.relevance_threshold", 6)
	viper.SetDefault("discovery.local_found_threshold", 10)
	viper.SetDefault("discovery.local_relevant_threshold", 3)
	viper.SetDefault("discovery.fallback_cap", 20)
	viper.SetDefault("discovery.keyword_count", 3)
	viper.SetDefault("discovery.local_search_limit", 50)
	viper.SetDefault("discovery.fulltext_enabled", true)

	viper.SetDefault("query.proximity_window", 3)
	viper.SetDefault("query.min_token_length", 3)

	viper.SetDefault("corpus.page_size", 25)
	viper.SetDefault("corpus.inter_call_delay", "1s")
	viper.SetDefault("corpus.max_retries", 5)
	viper.SetDefault("corpus.timeout", "30s")
	viper.SetDefault("corpus.email", "")

	viper.SetDefault("ai.model", "claude-sonnet-4-5")
	viper.SetDefault("ai.max_retries", 3)

	viper.SetDefault("fulltext.excerpt_limit", 2000)
	viper.SetDefault("fulltext.timeout", "30s")

	viper.SetDefault("indexer.max_queries", 5)
	viper.SetDefault("indexer.per_keyword_cap", 100)
	viper.SetDefault("indexer.keyword_delay", "10s")
	viper.SetDefault("indexer.query_delay", "30s")
	viper.SetDefault("indexer.idle_delay", "5m")

	viper.SetDefault("store.path", "survey.db")
	viper.SetDefault("report.output", "report.md")
}

// pipelineConfig assembles the full run configuration from viper
// (defaults, config file, environment), the .secrets/ directory, and
// the global --db flag. The API key never comes from defaults: only
// config file, environment, or .secrets/anthropic-api-key supply it.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.PipelineConfig{
		Query: types.QueryConfig{
			ProximityWindow: viper.GetInt("query.proximity_window"),
			MinTokenLength:  viper.GetInt("query.min_token_length"),
		},
		Discovery: types.DiscoveryConfig{
			MinTarget:              viper.GetInt("discovery.min_target"),
			MaxEvaluate:            viper.GetInt("discovery.max_evaluate"),
			RelevanceThreshold:     viper.GetInt("discovery.relevance_threshold"),
			LocalFoundThreshold:    viper.GetInt("discovery.local_found_threshold"),
			LocalRelevantThreshold: viper.GetInt("discovery.local_relevant_threshold"),
			FallbackCap:            viper.GetInt("discovery.fallback_cap"),
			KeywordCount:           viper.GetInt("discovery.keyword_count"),
			LocalSearchLimit:       viper.GetInt("discovery.local_search_limit"),
			FullTextEnabled:        viper.GetBool("discovery.fulltext_enabled"),
		},
		Corpus: types.CorpusConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("corpus.timeout"),
				UserAgent: defaultUserAgent,
			},
			PageSize:       viper.GetInt("corpus.page_size"),
			InterCallDelay: viper.GetDuration("corpus.inter_call_delay"),
			MaxRetries:     viper.GetInt("corpus.max_retries"),
			Email:          secretDefault("openalex-email", viper.GetString("corpus.email")),
		},
		AI: types.AIConfig{
			Model:      viper.GetString("ai.model"),
			APIKey:     secretDefault("anthropic-api-key", viper.GetString("ai.api_key")),
			MaxRetries: viper.GetInt("ai.max_retries"),
		},
		FullText: types.FullTextConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fulltext.timeout"),
				UserAgent: defaultUserAgent,
			},
			ExcerptLimit: viper.GetInt("fulltext.excerpt_limit"),
		},
		Store: types.StoreConfig{
			Path: viper.GetString("store.path"),
		},
		Indexer: types.IndexerConfig{
			MaxQueries:    viper.GetInt("indexer.max_queries"),
			PerKeywordCap: viper.GetInt("indexer.per_keyword_cap"),
			KeywordDelay:  viper.GetDuration("indexer.keyword_delay"),
			QueryDelay:    viper.GetDuration("indexer.query_delay"),
			IdleDelay:     viper.GetDuration("indexer.idle_delay"),
		},
		Report: types.ReportConfig{
			Output: viper.GetString("report.output"),
		},
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	return cfg
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
