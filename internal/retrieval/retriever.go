package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mnemora/membench/internal/observe"
	"github.com/mnemora/membench/pkg/memstore"
)

// searchConversationID is the generic grouping ID passed on search calls; the
// stores require one but retrieval is not scoped to a single session.
const searchConversationID = "search"

// Retriever queries the origin and process stores for one speaker/query pair.
type Retriever struct {
	origin  memstore.Store
	process memstore.Store
	metrics *observe.Metrics
}

// New creates a [Retriever] over the two logical stores.
func New(origin, process memstore.Store) *Retriever {
	return &Retriever{origin: origin, process: process, metrics: observe.DefaultMetrics()}
}

// Retrieve issues both store searches concurrently for the same speaker and
// query, normalizes each response, and returns the two record lists
// independently sorted ascending by timestamp string.
//
// Failure policy: any error from either store is caught here, logged, and
// converted to two empty lists — retrieval failure must never abort question
// answering.
func (r *Retriever) Retrieve(ctx context.Context, speakerID, query string) (raw, fact []Record) {
	ctx, span := observe.StartSpan(ctx, "retrieval.dual_search")
	defer span.End()
	start := time.Now()

	var rawRes, factRes any

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		res, err := r.origin.Search(egCtx, query, speakerID, searchConversationID)
		if err != nil {
			return err
		}
		rawRes = res
		return nil
	})
	eg.Go(func() error {
		res, err := r.process.Search(egCtx, query, speakerID, searchConversationID)
		if err != nil {
			return err
		}
		factRes = res
		return nil
	})

	err := eg.Wait()
	r.metrics.RetrievalDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.Logger(ctx).Error("memory search failed", "speaker", speakerID, "error", err)
		return nil, nil
	}

	raw = Normalize(rawRes, SourceRaw)
	fact = Normalize(factRes, SourceFact)
	sortByTimestamp(raw)
	sortByTimestamp(fact)
	return raw, fact
}
