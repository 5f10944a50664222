// Command membench runs the long-conversation memory benchmark: it ingests
// dialogue datasets into a dual memory store, answers the benchmark questions
// through retrieval-augmented synthesis, grades the answers, and reports
// per-category scores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnemora/membench/internal/answer"
	"github.com/mnemora/membench/internal/config"
	"github.com/mnemora/membench/internal/dataset"
	"github.com/mnemora/membench/internal/eval"
	"github.com/mnemora/membench/internal/ingest"
	"github.com/mnemora/membench/internal/observe"
	"github.com/mnemora/membench/internal/preprocess"
	"github.com/mnemora/membench/internal/resilience"
	"github.com/mnemora/membench/internal/retrieval"
	"github.com/mnemora/membench/pkg/memstore"
	"github.com/mnemora/membench/pkg/memstore/memos"
	pgvstore "github.com/mnemora/membench/pkg/memstore/pgvector"
	oaembed "github.com/mnemora/membench/pkg/provider/embeddings/openai"
	"github.com/mnemora/membench/pkg/provider/llm"
	"github.com/mnemora/membench/pkg/provider/llm/anyllm"
	oallm "github.com/mnemora/membench/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	step := flag.String("step", "all", "pipeline step to run: ingest, answer, judge, report, or all")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "membench: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "membench: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("membench starting",
		"config", *configPath,
		"step", *step,
		"dataset", cfg.DatasetPath,
		"results", cfg.ResultsPath,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "membench"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	// ── Dataset ───────────────────────────────────────────────────────────────
	items, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		slog.Error("failed to load dataset", "err", err)
		return 1
	}
	slog.Info("dataset loaded", "conversations", len(items))

	// ── Providers and stores ──────────────────────────────────────────────────
	provider, err := buildLLM(cfg.LLM)
	if err != nil {
		slog.Error("failed to build completion provider", "err", err)
		return 1
	}

	origin, err := buildStore(ctx, cfg.Stores.Origin, cfg.Embeddings)
	if err != nil {
		slog.Error("failed to build origin store", "err", err)
		return 1
	}
	process, err := buildStore(ctx, cfg.Stores.Process, cfg.Embeddings)
	if err != nil {
		slog.Error("failed to build process store", "err", err)
		return 1
	}

	orchestrator := buildOrchestrator(cfg, items, provider, origin, process)

	// ── Pipeline steps ────────────────────────────────────────────────────────
	if err := runSteps(ctx, cfg, *step, orchestrator, provider); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
			return 0
		}
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("done")
	return 0
}

// runSteps executes the selected pipeline stage(s) in benchmark order.
func runSteps(ctx context.Context, cfg *config.Config, step string, orchestrator *eval.Orchestrator, provider llm.Provider) error {
	var results eval.Results

	if step == "ingest" || step == "all" {
		slog.Info("ingesting conversations")
		if err := orchestrator.IngestAll(ctx); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	if step == "answer" || step == "all" {
		slog.Info("answering questions")
		var err error
		results, err = orchestrator.Run(ctx)
		if err != nil {
			return fmt.Errorf("answer: %w", err)
		}
	}

	if step == "judge" || step == "all" {
		if results == nil {
			loaded, err := eval.LoadResults(cfg.ResultsPath)
			if err != nil {
				return fmt.Errorf("judge: %w", err)
			}
			results = loaded
		}
		slog.Info("judging answers")

		judgeProvider := provider
		if cfg.Judge != cfg.LLM {
			var err error
			judgeProvider, err = buildLLM(cfg.Judge)
			if err != nil {
				return fmt.Errorf("judge provider: %w", err)
			}
		}
		if err := orchestrator.JudgeAll(ctx, eval.NewJudge(judgeProvider), results); err != nil {
			return fmt.Errorf("judge: %w", err)
		}
	}

	if step == "report" || step == "all" {
		if results == nil {
			loaded, err := eval.LoadResults(cfg.ResultsPath)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			results = loaded
		}
		return eval.WriteReport(os.Stdout, eval.BuildReport(results))
	}

	if step != "ingest" && step != "answer" && step != "judge" && step != "all" {
		return fmt.Errorf("unknown step %q; valid steps: ingest, answer, judge, report, all", step)
	}
	return nil
}

// ── Component wiring ──────────────────────────────────────────────────────────

// buildLLM creates a completion provider from a config entry. "openai" uses
// the native SDK; every other name is routed through the any-llm gateway.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "openai" {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// buildStore creates one memory store from its config entry.
func buildStore(ctx context.Context, entry config.StoreEntry, emb config.EmbeddingsEntry) (memstore.Store, error) {
	switch entry.Backend {
	case config.BackendPgvector:
		var embedOpts []oaembed.Option
		if emb.Dimensions > 0 {
			embedOpts = append(embedOpts, oaembed.WithDimensions(emb.Dimensions))
		}
		embedder, err := oaembed.New(emb.APIKey, emb.Model, embedOpts...)
		if err != nil {
			return nil, err
		}
		return pgvstore.New(ctx, entry.PostgresDSN, entry.Namespace, embedder)

	default:
		var opts []memos.Option
		if entry.BaseURL != "" {
			opts = append(opts, memos.WithBaseURL(entry.BaseURL))
		}
		return memos.New(entry.APIKey, opts...)
	}
}

// buildOrchestrator assembles the full pipeline out of configured components.
func buildOrchestrator(cfg *config.Config, items []dataset.Item, provider llm.Provider, origin, process memstore.Store) *eval.Orchestrator {
	retry := resilience.DefaultRetry
	if cfg.Ingest.Retries > 0 {
		retry.Attempts = cfg.Ingest.Retries
	}
	retry.Backoff = cfg.Ingest.RetryBackoffDuration()

	var ingestOpts []ingest.Option
	if cfg.Ingest.BatchSize > 0 {
		ingestOpts = append(ingestOpts, ingest.WithBatchSize(cfg.Ingest.BatchSize))
	}
	ingestOpts = append(ingestOpts, ingest.WithRetry(retry))

	var chunkerOpts []preprocess.ChunkerOption
	if cfg.Ingest.MaxChunkTurns > 0 {
		chunkerOpts = append(chunkerOpts, preprocess.WithMaxTurns(cfg.Ingest.MaxChunkTurns))
	}
	if cfg.Ingest.MaxChunkChars > 0 {
		chunkerOpts = append(chunkerOpts, preprocess.WithMaxChars(cfg.Ingest.MaxChunkChars))
	}
	extractorOpts := []preprocess.ExtractorOption{
		preprocess.WithChunker(preprocess.NewChunker(chunkerOpts...)),
	}
	if cfg.Ingest.MinFactWords > 0 {
		extractorOpts = append(extractorOpts, preprocess.WithMinFactWords(cfg.Ingest.MinFactWords))
	}

	var rewriter *answer.Rewriter
	if cfg.Answer.RewriteEnabled() {
		rewriter = answer.NewRewriter(provider)
	}
	synthesizer := answer.NewSynthesizer(provider, retrieval.New(origin, process), rewriter)

	var orchOpts []eval.OrchestratorOption
	if cfg.Answer.Workers > 0 {
		orchOpts = append(orchOpts, eval.WithQuestionWorkers(cfg.Answer.Workers))
	}
	if cfg.Ingest.Workers > 0 {
		orchOpts = append(orchOpts, eval.WithIngestWorkers(cfg.Ingest.Workers))
	}

	return eval.NewOrchestrator(
		items,
		ingest.New(origin, append(ingestOpts, ingest.WithName("origin"))...),
		ingest.New(process, append(ingestOpts, ingest.WithName("process"))...),
		preprocess.NewExtractor(provider, extractorOpts...),
		synthesizer,
		cfg.ResultsPath,
		orchOpts...,
	)
}

// serveMetrics exposes the Prometheus scrape endpoint.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics endpoint error", "err", err)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
