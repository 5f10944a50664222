// Package config provides the configuration schema and loader for the
// membench benchmark runner.
package config

// LogLevel controls log verbosity for the benchmark runner.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreBackend selects a memory store implementation.
type StoreBackend string

const (
	// BackendMemos uses the hosted memory service over HTTP.
	BackendMemos StoreBackend = "memos"

	// BackendPgvector uses a local Postgres instance with the vector extension.
	BackendPgvector StoreBackend = "pgvector"
)

// IsValid reports whether b is a recognised store backend.
func (b StoreBackend) IsValid() bool {
	return b == BackendMemos || b == BackendPgvector
}

// Config is the root configuration structure for membench.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// DatasetPath points at the benchmark conversation file.
	DatasetPath string `yaml:"dataset_path"`

	// ResultsPath is where incremental QA results are persisted.
	ResultsPath string `yaml:"results_path"`

	// LLM is the completion provider used for extraction, rewriting, and
	// answer synthesis.
	LLM ProviderEntry `yaml:"llm"`

	// Judge is the completion provider used for answer grading. When empty,
	// the LLM entry is reused.
	Judge ProviderEntry `yaml:"judge"`

	// Embeddings configures the embedding provider. Only required when a
	// store uses the pgvector backend.
	Embeddings EmbeddingsEntry `yaml:"embeddings"`

	// Stores configures the two logical memory stores.
	Stores StoresConfig `yaml:"stores"`

	Ingest  IngestConfig  `yaml:"ingest"`
	Answer  AnswerConfig  `yaml:"answer"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ProviderEntry is the common configuration block shared by completion
// providers.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "anthropic",
	// "ollama"). Anything other than "openai" is routed through the any-llm
	// gateway.
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// Falls back to the OPENAI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`
}

// EmbeddingsEntry configures the embedding provider for pgvector stores.
type EmbeddingsEntry struct {
	APIKey string `yaml:"api_key"`

	// Model selects the embedding model. Default: text-embedding-3-small.
	Model string `yaml:"model"`

	// Dimensions overrides the vector width when the model is not one of the
	// known OpenAI embedding models.
	Dimensions int `yaml:"dimensions"`
}

// StoresConfig holds the two logical store entries. Origin receives raw
// turns, process receives extracted facts; they are the same client type with
// different credentials or namespaces.
type StoresConfig struct {
	Origin  StoreEntry `yaml:"origin"`
	Process StoreEntry `yaml:"process"`
}

// StoreEntry configures one memory store instance.
type StoreEntry struct {
	// Backend selects the store implementation. Default: memos.
	Backend StoreBackend `yaml:"backend"`

	// APIKey authenticates against the hosted service (memos backend).
	// Falls back to MEMBENCH_ORIGIN_API_KEY / MEMBENCH_PROCESS_API_KEY.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the hosted service endpoint (memos backend).
	BaseURL string `yaml:"base_url"`

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Namespace isolates this store's rows when both stores share one
	// database (pgvector backend).
	Namespace string `yaml:"namespace"`
}

// IngestConfig tunes the ingestion pipelines.
type IngestConfig struct {
	// BatchSize is the number of messages per store write. Default: 5.
	BatchSize int `yaml:"batch_size"`

	// MaxChunkTurns bounds chunk length in turns. Default: 6.
	MaxChunkTurns int `yaml:"max_chunk_turns"`

	// MaxChunkChars bounds chunk length in characters. Default: 1400.
	MaxChunkChars int `yaml:"max_chunk_chars"`

	// MinFactWords is the word-count floor for extracted facts. Default: 5.
	MinFactWords int `yaml:"min_fact_words"`

	// Retries is the per-batch write attempt count. Default: 3.
	Retries int `yaml:"retries"`

	// RetryBackoff is the delay between attempts (e.g., "1s"). Default: 1s.
	RetryBackoff string `yaml:"retry_backoff"`

	// Workers bounds concurrent conversations during ingestion. Default: 10.
	Workers int `yaml:"workers"`
}

// AnswerConfig tunes the question-answering stage.
type AnswerConfig struct {
	// Workers bounds concurrent questions per conversation. Default: 5.
	Workers int `yaml:"workers"`

	// RewriteQueries enables pronoun-resolving query rewriting for
	// single-target questions. Default: true.
	RewriteQueries *bool `yaml:"rewrite_queries"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address for /metrics (e.g., ":9090"). Empty
	// disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// RewriteEnabled reports whether query rewriting is on, defaulting to true.
func (a AnswerConfig) RewriteEnabled() bool {
	return a.RewriteQueries == nil || *a.RewriteQueries
}
