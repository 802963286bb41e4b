package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "survey-engine/0.1"). Per prd005-corpus R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// QueryConfig holds settings for the search expression compiler.
// Per prd002-discovery R2.1-R2.4.
type QueryConfig struct {
	// ProximityWindow is the NEAR window applied between the words of a
	// multi-word keyword (default 3).
	ProximityWindow int `json:"proximity_window" yaml:"proximity_window"`

	// MinTokenLength drops tokens shorter than this many runes (default 3).
	MinTokenLength int `json:"min_token_length" yaml:"min_token_length"`
}

// DiscoveryConfig holds the per-subtopic budgets and thresholds that drive
// the source-discovery state machine.
// Per prd002-discovery R4.1-R4.6, R5.1-R5.4.
type DiscoveryConfig struct {
	// MinTarget is the number of highly relevant documents that satisfies
	// a subtopic and stops evaluation early (default 10).
	MinTarget int `json:"min_target" yaml:"min_target"`

	// MaxEvaluate caps documents evaluated per subtopic (default 40).
	MaxEvaluate int `json:"max_evaluate" yaml:"max_evaluate"`

	// RelevanceThreshold is the minimum score that counts a document as
	// highly relevant (default 6).
	RelevanceThreshold int `json:"relevance_threshold" yaml:"relevance_threshold"`

	// LocalFoundThreshold: fewer local candidates than this is one of the
	// four conditions for corpus fallback (default 10).
	LocalFoundThreshold int `json:"local_found_threshold" yaml:"local_found_threshold"`

	// LocalRelevantThreshold: fewer highly relevant documents than this
	// after the local pass is another fallback condition (default 3).
	LocalRelevantThreshold int `json:"local_relevant_threshold" yaml:"local_relevant_threshold"`

	// FallbackCap limits documents fetched from the corpus during one
	// subtopic's fallback phase (default 20).
	FallbackCap int `json:"fallback_cap" yaml:"fallback_cap"`

	// KeywordCount is the number of search keywords requested from the
	// keyword generator (default 3).
	KeywordCount int `json:"keyword_count" yaml:"keyword_count"`

	// LocalSearchLimit caps ranked results per local index query (default 50).
	LocalSearchLimit int `json:"local_search_limit" yaml:"local_search_limit"`

	// FullTextEnabled allows fetching full-text excerpts when an abstract
	// is missing or yields no finding.
	FullTextEnabled bool `json:"fulltext_enabled" yaml:"fulltext_enabled"`
}

// CorpusConfig holds settings for the external corpus client.
// Per prd005-corpus R1.2, R2.1-R2.4.
type CorpusConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageSize is the number of works requested per page (default 25,
	// capped by the API at 200).
	PageSize int `json:"page_size" yaml:"page_size"`

	// InterCallDelay is the minimum real-time delay between consecutive
	// corpus calls, successful ones included (default 1s).
	InterCallDelay time.Duration `json:"inter_call_delay" yaml:"inter_call_delay"`

	// MaxRetries caps rate-limit retry attempts per call (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Email joins the polite pool when set (sent as the mailto parameter).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FullTextConfig holds settings for full-text excerpt fetching.
// Per prd008-acquisition R2.1-R2.3.
type FullTextConfig struct {
	HTTPConfig `yaml:",inline"`

	// ExcerptLimit truncates fetched text at this many runes (default 2000).
	ExcerptLimit int `json:"excerpt_limit" yaml:"excerpt_limit"`
}

// StoreConfig holds settings for the SQLite document store.
// Per prd004-source-store R1.1.
type StoreConfig struct {
	// Path is the SQLite database file path (default "survey.db").
	Path string `json:"path" yaml:"path"`
}

// IndexerConfig holds settings for the background corpus indexer.
// Per prd007-indexer R1.1-R1.4.
type IndexerConfig struct {
	// MaxQueries is the number of recent plan queries processed per cycle
	// (default 5).
	MaxQueries int `json:"max_queries" yaml:"max_queries"`

	// PerKeywordCap limits documents fetched per keyword (default 100).
	PerKeywordCap int `json:"per_keyword_cap" yaml:"per_keyword_cap"`

	// KeywordDelay paces consecutive keyword searches (default 10s).
	KeywordDelay time.Duration `json:"keyword_delay" yaml:"keyword_delay"`

	// QueryDelay paces consecutive query passes (default 30s).
	QueryDelay time.Duration `json:"query_delay" yaml:"query_delay"`

	// IdleDelay is the sleep between cycles when no queries were
	// processed (default 5m).
	IdleDelay time.Duration `json:"idle_delay" yaml:"idle_delay"`
}

// ReportConfig holds settings for report assembly.
// Per prd006-report R1.1.
type ReportConfig struct {
	// Output is the report file path (default "report.md").
	Output string `json:"output" yaml:"output"`
}

// PipelineConfig groups all stage configurations. It is constructed once
// per run from defaults, config file, and environment, then passed down
// explicitly; no stage reads ambient globals.
type PipelineConfig struct {
	Query     QueryConfig     `json:"query" yaml:"query"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	FullText  FullTextConfig  `json:"fulltext" yaml:"fulltext"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Indexer   IndexerConfig   `json:"indexer" yaml:"indexer"`
	Report    ReportConfig    `json:"report" yaml:"report"`
}
