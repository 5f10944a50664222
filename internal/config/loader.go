package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the corresponding YAML keys are empty.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOriginAPIKey  = "MEMBENCH_ORIGIN_API_KEY"
	EnvProcessAPIKey = "MEMBENCH_PROCESS_API_KEY"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment fallbacks
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty credential fields from the environment.
func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(EnvOpenAIKey)
	}
	if cfg.Judge.APIKey == "" {
		cfg.Judge.APIKey = os.Getenv(EnvOpenAIKey)
	}
	if cfg.Embeddings.APIKey == "" {
		cfg.Embeddings.APIKey = os.Getenv(EnvOpenAIKey)
	}
	if cfg.Stores.Origin.APIKey == "" {
		cfg.Stores.Origin.APIKey = os.Getenv(EnvOriginAPIKey)
	}
	if cfg.Stores.Process.APIKey == "" {
		cfg.Stores.Process.APIKey = os.Getenv(EnvProcessAPIKey)
	}
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = "results/results.json"
	}
	if cfg.Judge.Name == "" {
		cfg.Judge = cfg.LLM
	}
	if cfg.Stores.Origin.Backend == "" {
		cfg.Stores.Origin.Backend = BackendMemos
	}
	if cfg.Stores.Process.Backend == "" {
		cfg.Stores.Process.Backend = BackendMemos
	}
	if cfg.Stores.Origin.Namespace == "" {
		cfg.Stores.Origin.Namespace = "origin"
	}
	if cfg.Stores.Process.Namespace == "" {
		cfg.Stores.Process.Namespace = "process"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.DatasetPath == "" {
		errs = append(errs, errors.New("dataset_path is required"))
	}
	if cfg.LLM.Name == "" {
		errs = append(errs, errors.New("llm.name is required"))
	}
	if cfg.LLM.Name != "" && cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}

	errs = append(errs, validateStore("stores.origin", cfg.Stores.Origin, cfg.Embeddings)...)
	errs = append(errs, validateStore("stores.process", cfg.Stores.Process, cfg.Embeddings)...)

	if cfg.Ingest.RetryBackoff != "" {
		if _, err := time.ParseDuration(cfg.Ingest.RetryBackoff); err != nil {
			errs = append(errs, fmt.Errorf("ingest.retry_backoff %q is not a duration: %w", cfg.Ingest.RetryBackoff, err))
		}
	}
	for name, v := range map[string]int{
		"ingest.batch_size":      cfg.Ingest.BatchSize,
		"ingest.max_chunk_turns": cfg.Ingest.MaxChunkTurns,
		"ingest.max_chunk_chars": cfg.Ingest.MaxChunkChars,
		"ingest.min_fact_words":  cfg.Ingest.MinFactWords,
		"ingest.retries":         cfg.Ingest.Retries,
		"ingest.workers":         cfg.Ingest.Workers,
		"answer.workers":         cfg.Answer.Workers,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// RetryBackoffDuration parses the configured backoff, defaulting to 1s.
func (c IngestConfig) RetryBackoffDuration() time.Duration {
	if c.RetryBackoff == "" {
		return time.Second
	}
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil {
		return time.Second
	}
	return d
}

func validateStore(prefix string, entry StoreEntry, emb EmbeddingsEntry) []error {
	var errs []error
	if !entry.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%s.backend %q is invalid; valid values: memos, pgvector", prefix, entry.Backend))
		return errs
	}
	switch entry.Backend {
	case BackendMemos:
		if entry.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for the memos backend", prefix))
		}
	case BackendPgvector:
		if entry.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%s.postgres_dsn is required for the pgvector backend", prefix))
		}
		if emb.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s uses the pgvector backend but embeddings.api_key is not set", prefix))
		}
	}
	return errs
}
