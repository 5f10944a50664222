// Package ingest writes per-speaker conversation memories into an external
// memory store, batch by batch, with bounded retries.
//
// The benchmark runs two ingestion pipelines over the same dialogue: the
// origin pipeline stores raw first-person-view turns and the process pipeline
// stores fact-extracted turns. Both are the same [Ingestor] type pointed at a
// different store client — the raw/fact split is a namespace decision, not a
// code path.
package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mnemora/membench/internal/dataset"
	"github.com/mnemora/membench/internal/observe"
	"github.com/mnemora/membench/internal/preprocess"
	"github.com/mnemora/membench/internal/resilience"
	"github.com/mnemora/membench/pkg/memstore"
)

// DefaultBatchSize is the number of messages grouped into one store write.
const DefaultBatchSize = 5

// Ingestor writes speaker memories into a single store.
type Ingestor struct {
	store     memstore.Store
	name      string
	batchSize int
	retry     resilience.RetryConfig
	metrics   *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Ingestor)

// WithBatchSize sets how many messages are grouped per write. Defaults to 5.
func WithBatchSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithRetry overrides the write retry policy. Defaults to
// [resilience.DefaultRetry] (3 attempts, 1 s backoff).
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(i *Ingestor) {
		i.retry = cfg
	}
}

// WithName labels this ingestor's metrics with the logical store name
// ("origin" or "process"). Defaults to "store".
func WithName(name string) Option {
	return func(i *Ingestor) {
		if name != "" {
			i.name = name
		}
	}
}

// New creates an [Ingestor] for the given store.
func New(store memstore.Store, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		name:      "store",
		batchSize: DefaultBatchSize,
		retry:     resilience.DefaultRetry,
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestSpeaker writes messages for one speaker in fixed-size batches. The
// session timestamp is passed as the conversation ID so retrieved memories
// stay dateable. Each batch write is retried per the configured policy;
// exhausted retries are logged and skipped — a single failed write never
// aborts the run.
func (i *Ingestor) IngestSpeaker(ctx context.Context, speakerID string, messages []memstore.Message, timestamp string) {
	for start := 0; start < len(messages); start += i.batchSize {
		end := min(start+i.batchSize, len(messages))
		batch := messages[start:end]

		err := resilience.Retry(ctx, i.retry, "store add", func(ctx context.Context) error {
			return i.store.Add(ctx, batch, speakerID, timestamp)
		})
		if err != nil {
			i.metrics.RecordIngestBatch(ctx, i.name, "error")
			slog.Error("failed to add memory batch",
				"speaker", speakerID, "timestamp", timestamp, "batch_size", len(batch), "error", err)
			continue
		}
		i.metrics.RecordIngestBatch(ctx, i.name, "ok")
	}
}

// IngestSession writes both speakers' message views for one session
// concurrently and waits for both to finish. The two writes share no mutable
// state.
func (i *Ingestor) IngestSession(ctx context.Context, aID string, aMessages []memstore.Message, bID string, bMessages []memstore.Message, timestamp string) {
	var eg errgroup.Group
	eg.Go(func() error {
		i.IngestSpeaker(ctx, aID, aMessages, timestamp)
		return nil
	})
	eg.Go(func() error {
		i.IngestSpeaker(ctx, bID, bMessages, timestamp)
		return nil
	})
	_ = eg.Wait()
}

// SpeakerView builds the first-person message list for self out of a session:
// every utterance keeps its "Speaker: text" content, tagged "user" when self
// spoke and "assistant" for the interlocutor. Storing each speaker's own
// perspective lets the memory service attribute facts correctly.
func SpeakerView(s dataset.Session, self string) []memstore.Message {
	msgs := make([]memstore.Message, 0, len(s.Chats))
	for _, chat := range s.Chats {
		role := "assistant"
		if chat.Speaker == self {
			role = "user"
		}
		msgs = append(msgs, memstore.Message{
			Role:     role,
			Content:  chat.Speaker + ": " + chat.Text,
			ChatTime: s.Timestamp,
		})
	}
	return msgs
}

// TurnsFromMessages converts a speaker view into preprocess turns for the fact
// pipeline.
func TurnsFromMessages(msgs []memstore.Message) []preprocess.Turn {
	turns := make([]preprocess.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = preprocess.Turn{Role: m.Role, Content: m.Content, Timestamp: m.ChatTime}
	}
	return turns
}

// MessagesFromTurns converts preprocess output back into store messages.
func MessagesFromTurns(turns []preprocess.Turn) []memstore.Message {
	msgs := make([]memstore.Message, len(turns))
	for i, t := range turns {
		msgs[i] = memstore.Message{Role: t.Role, Content: t.Content, ChatTime: t.Timestamp}
	}
	return msgs
}
