package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mnemora/membench/internal/answer"
	"github.com/mnemora/membench/internal/dataset"
	"github.com/mnemora/membench/internal/ingest"
	"github.com/mnemora/membench/internal/observe"
	"github.com/mnemora/membench/internal/preprocess"
	"github.com/mnemora/membench/pkg/memstore"
)

// Worker pool defaults: questions fan out within one conversation, ingestion
// fans out across conversations.
const (
	DefaultQuestionWorkers = 5
	DefaultIngestWorkers   = 10
)

// Orchestrator drives the benchmark end to end over a loaded dataset.
type Orchestrator struct {
	items       []dataset.Item
	origin      *ingest.Ingestor
	process     *ingest.Ingestor
	extractor   *preprocess.Extractor
	synthesizer *answer.Synthesizer
	metrics     *observe.Metrics

	resultsPath     string
	questionWorkers int
	ingestWorkers   int
}

// OrchestratorOption is a functional option for [NewOrchestrator].
type OrchestratorOption func(*Orchestrator)

// WithQuestionWorkers bounds concurrent questions per conversation. Defaults to 5.
func WithQuestionWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.questionWorkers = n
		}
	}
}

// WithIngestWorkers bounds concurrent conversations during ingestion. Defaults to 10.
func WithIngestWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.ingestWorkers = n
		}
	}
}

// WithMetrics overrides the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewOrchestrator wires the benchmark components over the dataset items.
// resultsPath is where incremental results are persisted.
func NewOrchestrator(
	items []dataset.Item,
	origin, process *ingest.Ingestor,
	extractor *preprocess.Extractor,
	synthesizer *answer.Synthesizer,
	resultsPath string,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		items:           items,
		origin:          origin,
		process:         process,
		extractor:       extractor,
		synthesizer:     synthesizer,
		metrics:         observe.DefaultMetrics(),
		resultsPath:     resultsPath,
		questionWorkers: DefaultQuestionWorkers,
		ingestWorkers:   DefaultIngestWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IngestAll runs both ingestion pipelines for every conversation, fanning out
// across conversations with a bounded pool. Within a conversation, sessions
// are processed in order: the origin store receives each speaker's raw view
// and the process store receives the fact-extracted view of the same turns.
//
// Ingestion is fail-soft throughout (batch write failures are logged by the
// ingestor, extraction failures degrade to raw turns), so IngestAll only
// returns an error when the context is cancelled.
func (o *Orchestrator) IngestAll(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.ingestWorkers)

	for i, item := range o.items {
		eg.Go(func() error {
			o.ingestConversation(egCtx, i, item.Conversation)
			return egCtx.Err()
		})
	}
	return eg.Wait()
}

func (o *Orchestrator) ingestConversation(ctx context.Context, index int, conv dataset.Conversation) {
	dataset.WarnOnTimestamps(conv, index)

	aID := dataset.SpeakerID(conv.SpeakerA, index)
	bID := dataset.SpeakerID(conv.SpeakerB, index)

	for _, session := range conv.Sessions {
		aView := ingest.SpeakerView(session, conv.SpeakerA)
		bView := ingest.SpeakerView(session, conv.SpeakerB)

		o.origin.IngestSession(ctx, aID, aView, bID, bView, session.Timestamp)

		aFacts := o.extractFacts(ctx, aView, conv.SpeakerA, session.Timestamp)
		bFacts := o.extractFacts(ctx, bView, conv.SpeakerB, session.Timestamp)
		o.process.IngestSession(ctx, aID, aFacts, bID, bFacts, session.Timestamp)

		slog.Info("session ingested",
			"conversation", index, "session", session.Name,
			"raw_turns", len(aView)+len(bView), "fact_turns", len(aFacts)+len(bFacts))
	}
}

// extractFacts runs the fact pipeline over one speaker's session view and
// meters the provenance of what came back. An extraction failure has already
// degraded to the raw turns inside the extractor, so the returned messages are
// always ingestable.
func (o *Orchestrator) extractFacts(ctx context.Context, view []memstore.Message, speakerName, timestamp string) []memstore.Message {
	result, err := o.extractor.Extract(ctx, ingest.TurnsFromMessages(view), speakerName, timestamp)
	if err != nil {
		// Extract only errors on empty input edge cases; treat as raw.
		slog.Warn("fact extraction errored", "speaker", speakerName, "error", err)
		o.metrics.RecordExtraction(ctx, string(preprocess.SourceRawFallback))
		return view
	}
	o.metrics.RecordExtraction(ctx, string(result.Source))
	return ingest.MessagesFromTurns(result.Turns)
}

// Run answers every question of every conversation. Conversations run
// sequentially; within each, questions fan out over a bounded pool. The full
// result set is re-persisted after each conversation completes, so an
// interrupted run keeps everything answered so far.
//
// A failed question never aborts the run: it is logged and recorded with an
// empty answer.
func (o *Orchestrator) Run(ctx context.Context) (Results, error) {
	results := make(Results, len(o.items))

	for i, item := range o.items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		convResults := o.runConversation(ctx, i, item)
		results[strconv.Itoa(i)] = convResults

		if err := SaveResults(o.resultsPath, results); err != nil {
			return results, fmt.Errorf("persist results after conversation %d: %w", i, err)
		}
		slog.Info("conversation answered", "conversation", i, "questions", len(convResults))
	}
	return results, nil
}

func (o *Orchestrator) runConversation(ctx context.Context, index int, item dataset.Item) []QAResult {
	conv := item.Conversation
	transcript := dataset.Transcript(conv)
	speakerA := answer.Speaker{Name: conv.SpeakerA, ID: dataset.SpeakerID(conv.SpeakerA, index)}
	speakerB := answer.Speaker{Name: conv.SpeakerB, ID: dataset.SpeakerID(conv.SpeakerB, index)}
	names := []string{conv.SpeakerA, conv.SpeakerB}

	convResults := make([]QAResult, len(item.QA))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.questionWorkers)
	for qi, qa := range item.QA {
		eg.Go(func() error {
			convResults[qi] = o.answerQuestion(egCtx, qa, speakerA, speakerB, transcript, names)
			return nil
		})
	}
	_ = eg.Wait()
	return convResults
}

// answerQuestion runs one question through routing, synthesis, normalization,
// and lexical scoring. Pipeline errors degrade to an empty-answer result.
func (o *Orchestrator) answerQuestion(ctx context.Context, qa dataset.QA, a, b answer.Speaker, transcript string, names []string) QAResult {
	ctx, span := observe.StartSpan(ctx, "eval.answer_question")
	defer span.End()

	o.metrics.ActiveQuestions.Add(ctx, 1)
	defer o.metrics.ActiveQuestions.Add(ctx, -1)

	category := qa.Category.String()
	result := QAResult{
		Question:   qa.Question,
		GoldAnswer: qa.Answer.String(),
		Category:   category,
	}
	start := time.Now()

	targets := answer.Route(qa.Question, a, b)
	rawAnswer, evidence, err := o.synthesizer.Synthesize(ctx, targets, qa.Question, transcript, category)
	result.DurationMS = time.Since(start).Milliseconds()
	o.metrics.CompletionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Error("question failed", "question", qa.Question, "error", err)
		o.metrics.RecordProviderError(ctx, "answer")
		o.metrics.RecordQuestion(ctx, category, "error")
		return result
	}

	normalized := answer.Normalize(rawAnswer, names)
	normalized = answer.ConstrainYesNo(normalized, qa.Question, category)

	result.Answer = normalized
	result.Evidence = evidence
	result.F1 = TokenF1(normalized, result.GoldAnswer)
	result.BLEU = BLEU1(normalized, result.GoldAnswer)
	result.Similarity = Similarity(normalized, result.GoldAnswer)

	o.metrics.RecordQuestion(ctx, category, "ok")
	return result
}

// JudgeAll fills in the judgment field of every unjudged result using the
// given judge, skipping the adversarial category and questions that produced
// no answer. The updated set is persisted once at the end.
func (o *Orchestrator) JudgeAll(ctx context.Context, judge *Judge, results Results) error {
	for key, convResults := range results {
		for i := range convResults {
			r := &convResults[i]
			if r.Judgment != "" || r.Category == adversarialCategory || r.Answer == "" {
				continue
			}
			label, err := judge.Judge(ctx, r.Question, r.GoldAnswer, r.Answer)
			if err != nil {
				slog.Warn("judgment failed", "conversation", key, "question", r.Question, "error", err)
				o.metrics.RecordProviderError(ctx, "judge")
				continue
			}
			r.Judgment = label
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return SaveResults(o.resultsPath, results)
}
