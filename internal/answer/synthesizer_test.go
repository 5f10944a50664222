package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mnemora/membench/internal/retrieval"
	"github.com/mnemora/membench/pkg/provider/llm"
	"github.com/mnemora/membench/pkg/provider/llm/mock"
)

// fakeRetriever returns canned per-speaker evidence.
type fakeRetriever struct {
	bySpeaker map[string][2][]retrieval.Record
	queries   []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, speakerID, query string) (raw, fact []retrieval.Record) {
	f.queries = append(f.queries, query)
	pair := f.bySpeaker[speakerID]
	return pair[0], pair[1]
}

func TestSynthesizeBuildsEvidencePrompt(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Berlin"},
	}
	retriever := &fakeRetriever{bySpeaker: map[string][2][]retrieval.Record{
		"Alice_0": {
			{{Content: "Alice: moved to Berlin", Timestamp: "2023-05-08", Source: retrieval.SourceRaw}},
			{{Content: "Alice lives in Berlin", Timestamp: "2023-05-08", Source: retrieval.SourceFact}},
		},
	}}
	s := NewSynthesizer(provider, retriever, nil)

	answer, evidence, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}},
		"Where does Alice live?", "--- Date: 2023-05-08 ---\nAlice: I moved!", "1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if answer != "Berlin" {
		t.Errorf("expected answer Berlin, got %q", answer)
	}
	if len(evidence) != 2 {
		t.Fatalf("expected 2 evidence records, got %d", len(evidence))
	}
	for _, r := range evidence {
		if r.Speaker != "Alice" {
			t.Errorf("expected evidence tagged with speaker Alice, got %+v", r)
		}
	}

	req := provider.Calls()[0].Req
	prompt := req.Messages[0].Content
	transcriptIdx := strings.Index(prompt, "Alice: I moved!")
	rawIdx := strings.Index(prompt, "[Alice|2023-05-08] Alice: moved to Berlin")
	factIdx := strings.Index(prompt, "[Alice|2023-05-08] Alice lives in Berlin")
	questionIdx := strings.Index(prompt, "Question: Where does Alice live?")
	if transcriptIdx < 0 || rawIdx < 0 || factIdx < 0 || questionIdx < 0 {
		t.Fatalf("prompt missing an evidence block:\n%s", prompt)
	}
	if !(transcriptIdx < rawIdx && rawIdx < factIdx && factIdx < questionIdx) {
		t.Errorf("evidence blocks out of order: transcript=%d raw=%d fact=%d question=%d",
			transcriptIdx, rawIdx, factIdx, questionIdx)
	}

	if req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
	if req.MaxTokens != maxTokensConcise {
		t.Errorf("expected max tokens %d, got %d", maxTokensConcise, req.MaxTokens)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "\n" {
		t.Errorf("expected newline stop sequence, got %v", req.Stop)
	}
}

func TestSynthesizeDetailedCategoryBudget(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "hiking, painting, pottery"},
	}
	s := NewSynthesizer(provider, &fakeRetriever{}, nil)

	if _, _, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}}, "What are Alice's hobbies?", "", detailedCategory); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	req := provider.Calls()[0].Req
	if req.MaxTokens != maxTokensDetailed {
		t.Errorf("expected max tokens %d for detailed category, got %d", maxTokensDetailed, req.MaxTokens)
	}
}

func TestSynthesizeRewritesOnlySingleTarget(t *testing.T) {
	t.Parallel()

	rewriteProvider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Where did Alice travel?"},
	}
	answerProvider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Rome"},
	}
	retriever := &fakeRetriever{}
	s := NewSynthesizer(answerProvider, retriever, NewRewriter(rewriteProvider))

	// Single target: the search query is the rewrite, the prompt keeps the original.
	if _, _, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}}, "Where did she travel?", "", "2"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "Where did Alice travel?" {
		t.Errorf("expected rewritten search query, got %v", retriever.queries)
	}
	if prompt := answerProvider.Calls()[0].Req.Messages[0].Content; !strings.Contains(prompt, "Question: Where did she travel?") {
		t.Errorf("answer prompt should keep the original question:\n%s", prompt)
	}

	// Two targets: no rewrite call, both speakers searched with the question.
	retriever.queries = nil
	if _, _, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}, {Name: "Bob", ID: "Bob_0"}},
		"Where did they travel?", "", "2"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(rewriteProvider.Calls()) != 1 {
		t.Errorf("expected no additional rewrite calls for two targets, got %d", len(rewriteProvider.Calls()))
	}
	if len(retriever.queries) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(retriever.queries))
	}
	for _, q := range retriever.queries {
		if q != "Where did they travel?" {
			t.Errorf("expected original question as query, got %q", q)
		}
	}
}

func TestSynthesizeEmptyEvidencePlaceholder(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "unknown"},
	}
	s := NewSynthesizer(provider, &fakeRetriever{}, nil)

	if _, _, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}}, "q", "", "1"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	prompt := provider.Calls()[0].Req.Messages[0].Content
	if strings.Count(prompt, "(none retrieved)") != 2 {
		t.Errorf("expected both retrieval channels to carry the empty placeholder:\n%s", prompt)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(&mock.Provider{CompleteErr: errors.New("boom")}, &fakeRetriever{}, nil)

	if _, _, err := s.Synthesize(context.Background(),
		[]Speaker{{Name: "Alice", ID: "Alice_0"}}, "q", "", "1"); err == nil {
		t.Fatal("expected error from failing provider")
	}
}
