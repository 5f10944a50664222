package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
log_level: debug
dataset_path: data/conversations.json
llm:
  name: openai
  api_key: sk-test
  model: gpt-4o-mini
stores:
  origin:
    api_key: origin-key
  process:
    api_key: process-key
ingest:
  batch_size: 10
  retry_backoff: 2s
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != LogDebug {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.Ingest.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.Ingest.BatchSize)
	}
	if d := cfg.Ingest.RetryBackoffDuration(); d != 2*time.Second {
		t.Errorf("expected 2s backoff, got %v", d)
	}
}

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.ResultsPath != "results/results.json" {
		t.Errorf("expected default results path, got %q", cfg.ResultsPath)
	}
	if cfg.Stores.Origin.Backend != BackendMemos || cfg.Stores.Process.Backend != BackendMemos {
		t.Errorf("expected memos backend defaults, got %q/%q", cfg.Stores.Origin.Backend, cfg.Stores.Process.Backend)
	}
	if cfg.Stores.Origin.Namespace != "origin" || cfg.Stores.Process.Namespace != "process" {
		t.Errorf("expected namespace defaults, got %q/%q", cfg.Stores.Origin.Namespace, cfg.Stores.Process.Namespace)
	}
	if cfg.Judge.Model != cfg.LLM.Model {
		t.Errorf("expected judge to fall back to llm entry, got %+v", cfg.Judge)
	}
	if !cfg.Answer.RewriteEnabled() {
		t.Error("expected query rewriting enabled by default")
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(validYAML + "\nbogus_key: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing dataset path",
			`
llm: {name: openai, api_key: k, model: m}
stores:
  origin: {api_key: k}
  process: {api_key: k}
`,
			"dataset_path is required",
		},
		{
			"missing llm",
			`
dataset_path: d.json
stores:
  origin: {api_key: k}
  process: {api_key: k}
`,
			"llm.name is required",
		},
		{
			"bad backend",
			`
dataset_path: d.json
llm: {name: openai, api_key: k, model: m}
stores:
  origin: {backend: redis}
  process: {api_key: k}
`,
			`stores.origin.backend "redis" is invalid`,
		},
		{
			"pgvector without dsn",
			`
dataset_path: d.json
llm: {name: openai, api_key: k, model: m}
embeddings: {api_key: k}
stores:
  origin: {backend: pgvector}
  process: {api_key: k}
`,
			"stores.origin.postgres_dsn is required",
		},
		{
			"bad backoff",
			`
dataset_path: d.json
llm: {name: openai, api_key: k, model: m}
stores:
  origin: {api_key: k}
  process: {api_key: k}
ingest: {retry_backoff: soon}
`,
			"ingest.retry_backoff",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "env-openai")
	t.Setenv(EnvOriginAPIKey, "env-origin")
	t.Setenv(EnvProcessAPIKey, "env-process")

	cfg, err := LoadFromReader(strings.NewReader(`
dataset_path: d.json
llm: {name: openai, model: m}
stores:
  origin: {}
  process: {}
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LLM.APIKey != "env-openai" {
		t.Errorf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Stores.Origin.APIKey != "env-origin" || cfg.Stores.Process.APIKey != "env-process" {
		t.Errorf("expected store keys from env, got %q/%q", cfg.Stores.Origin.APIKey, cfg.Stores.Process.APIKey)
	}
}
