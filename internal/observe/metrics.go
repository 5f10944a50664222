// Package observe provides application-wide observability primitives for
// membench: OpenTelemetry metrics and tracing with a Prometheus exporter
// bridge for /metrics scraping.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all membench metrics.
const meterName = "github.com/mnemora/membench"

// Metrics holds all OpenTelemetry metric instruments for the benchmark run.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CompletionDuration tracks completion-provider call latency. Use with
	// attribute.String("kind", ...) to separate extraction, rewrite, answer,
	// and judge calls.
	CompletionDuration metric.Float64Histogram

	// RetrievalDuration tracks dual-store retrieval latency per question.
	RetrievalDuration metric.Float64Histogram

	// IngestBatches counts store write batches. Use with attributes:
	//   attribute.String("store", ...), attribute.String("status", ...)
	IngestBatches metric.Int64Counter

	// ExtractionOutcomes counts fact-extraction results per speaker/session.
	// Use with attribute.String("source", ...) carrying the provenance tag
	// (facts vs. raw fallback).
	ExtractionOutcomes metric.Int64Counter

	// QuestionsAnswered counts answered questions. Use with attributes:
	//   attribute.String("category", ...), attribute.String("status", ...)
	QuestionsAnswered metric.Int64Counter

	// ProviderErrors counts provider errors by kind.
	ProviderErrors metric.Int64Counter

	// ActiveQuestions tracks questions currently in flight.
	ActiveQuestions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote LLM and store calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CompletionDuration, err = m.Float64Histogram("membench.completion.duration",
		metric.WithDescription("Latency of completion provider calls by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("membench.retrieval.duration",
		metric.WithDescription("Latency of dual-store retrieval per question."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.IngestBatches, err = m.Int64Counter("membench.ingest.batches",
		metric.WithDescription("Total memory write batches by store and status."),
	); err != nil {
		return nil, err
	}
	if met.ExtractionOutcomes, err = m.Int64Counter("membench.extraction.outcomes",
		metric.WithDescription("Fact extraction outcomes by provenance source."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsAnswered, err = m.Int64Counter("membench.questions.answered",
		metric.WithDescription("Total questions answered by category and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("membench.provider.errors",
		metric.WithDescription("Total provider errors by kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveQuestions, err = m.Int64UpDownCounter("membench.active_questions",
		metric.WithDescription("Number of questions currently being answered."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordIngestBatch records one store write batch with its outcome.
func (m *Metrics) RecordIngestBatch(ctx context.Context, store, status string) {
	m.IngestBatches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("store", store),
			attribute.String("status", status),
		),
	)
}

// RecordExtraction records one extraction outcome with its provenance source.
func (m *Metrics) RecordExtraction(ctx context.Context, source string) {
	m.ExtractionOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordQuestion records one answered question.
func (m *Metrics) RecordQuestion(ctx context.Context, category, status string) {
	m.QuestionsAnswered.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error by call kind.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
