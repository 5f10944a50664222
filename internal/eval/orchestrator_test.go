package eval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnemora/membench/internal/answer"
	"github.com/mnemora/membench/internal/dataset"
	"github.com/mnemora/membench/internal/ingest"
	"github.com/mnemora/membench/internal/preprocess"
	"github.com/mnemora/membench/internal/retrieval"
	"github.com/mnemora/membench/pkg/provider/llm"
	"github.com/mnemora/membench/pkg/provider/llm/mock"
	"github.com/mnemora/membench/pkg/memstore"
	storemock "github.com/mnemora/membench/pkg/memstore/mock"
)

func testItems() []dataset.Item {
	return []dataset.Item{
		{
			Conversation: dataset.Conversation{
				SpeakerA: "Alice",
				SpeakerB: "Bob",
				Sessions: []dataset.Session{
					{
						Name:      "session_1",
						Timestamp: "1:56 pm on 8 May, 2023",
						Chats: []dataset.Chat{
							{Speaker: "Alice", Text: "I just moved to Berlin for my new job"},
							{Speaker: "Bob", Text: "I adopted a dog named Bruno last week"},
						},
					},
				},
			},
			QA: []dataset.QA{
				{Question: "Where does Alice live?", Answer: "Berlin", Category: "1"},
				{Question: "What is the name of Bob's dog?", Answer: "Bruno", Category: "2"},
			},
		},
	}
}

// routedProvider answers extraction and synthesis requests differently based
// on the prompt text, the way the real provider sees them.
func routedProvider(t *testing.T) *mock.Provider {
	t.Helper()
	return &mock.Provider{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			prompt := req.Messages[0].Content
			switch {
			case strings.Contains(prompt, "atomic, factual memories"):
				return &llm.CompletionResponse{Content: `{"facts": ["The speaker shared a personal life update today"]}`}, nil
			case strings.Contains(prompt, "direct QA system"):
				if strings.Contains(prompt, "Alice live") {
					return &llm.CompletionResponse{Content: "Berlin"}, nil
				}
				return &llm.CompletionResponse{Content: "Bruno"}, nil
			default:
				t.Errorf("unexpected prompt: %q", prompt)
				return &llm.CompletionResponse{Content: ""}, nil
			}
		},
	}
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, origin, process memstore.Store) *Orchestrator {
	t.Helper()
	synthesizer := answer.NewSynthesizer(provider, retrieval.New(origin, process), nil)
	return NewOrchestrator(
		testItems(),
		ingest.New(origin),
		ingest.New(process),
		preprocess.NewExtractor(provider),
		synthesizer,
		filepath.Join(t.TempDir(), "results.json"),
		WithQuestionWorkers(2),
	)
}

func TestIngestAllWritesBothStores(t *testing.T) {
	t.Parallel()

	origin := &storemock.Store{}
	process := &storemock.Store{}
	o := newTestOrchestrator(t, routedProvider(t), origin, process)

	if err := o.IngestAll(context.Background()); err != nil {
		t.Fatalf("IngestAll: %v", err)
	}

	originUsers := map[string]bool{}
	for _, call := range origin.Added() {
		originUsers[call.UserID] = true
		if call.ConversationID != "1:56 pm on 8 May, 2023" {
			t.Errorf("expected session timestamp as conversation ID, got %q", call.ConversationID)
		}
	}
	if !originUsers["Alice_0"] || !originUsers["Bob_0"] {
		t.Errorf("expected raw writes for both speakers, got %v", originUsers)
	}

	if len(process.Added()) == 0 {
		t.Fatal("expected fact writes in the process store")
	}
	for _, call := range process.Added() {
		for _, m := range call.Messages {
			if !strings.Contains(m.Content, "life update") {
				t.Errorf("expected extracted fact content, got %q", m.Content)
			}
		}
	}
}

func TestRunAnswersAndPersists(t *testing.T) {
	t.Parallel()

	stores := func() *storemock.Store {
		return &storemock.Store{
			SearchResult: &memstore.SearchResponse{Data: memstore.SearchData{MemoryDetailList: []memstore.MemoryDetail{
				{MemoryValue: "Alice: I just moved to Berlin", ConversationID: "1:56 pm on 8 May, 2023"},
			}}},
		}
	}
	o := newTestOrchestrator(t, routedProvider(t), stores(), stores())

	results, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	convResults, ok := results["0"]
	if !ok || len(convResults) != 2 {
		t.Fatalf("expected 2 results for conversation 0, got %+v", results)
	}
	if convResults[0].Answer != "Berlin" {
		t.Errorf("question 0: expected Berlin, got %q", convResults[0].Answer)
	}
	if convResults[1].Answer != "Bruno" {
		t.Errorf("question 1: expected Bruno, got %q", convResults[1].Answer)
	}
	if convResults[0].F1 != 1 {
		t.Errorf("question 0: expected F1 1 against gold, got %v", convResults[0].F1)
	}
	if len(convResults[0].Evidence) == 0 {
		t.Error("expected evidence records on the result")
	}

	// The incremental file must already hold the full result set.
	loaded, err := LoadResults(o.resultsPath)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(loaded["0"]) != 2 {
		t.Errorf("expected persisted results, got %+v", loaded)
	}
}

func TestRunIsolatesQuestionFailures(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if strings.Contains(req.Messages[0].Content, "Alice live") {
				return nil, errors.New("model overloaded")
			}
			return &llm.CompletionResponse{Content: "Bruno"}, nil
		},
	}
	o := newTestOrchestrator(t, provider, &storemock.Store{}, &storemock.Store{})

	results, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	convResults := results["0"]
	if len(convResults) != 2 {
		t.Fatalf("expected both questions recorded, got %d", len(convResults))
	}
	if convResults[0].Answer != "" {
		t.Errorf("failed question should record an empty answer, got %q", convResults[0].Answer)
	}
	if convResults[1].Answer != "Bruno" {
		t.Errorf("healthy question should still be answered, got %q", convResults[1].Answer)
	}
}

func TestJudgeAllSkipsAdversarialAndEmpty(t *testing.T) {
	t.Parallel()

	judgeProvider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"label": "CORRECT"}`},
	}
	o := newTestOrchestrator(t, routedProvider(t), &storemock.Store{}, &storemock.Store{})

	results := Results{
		"0": {
			{Question: "q1", GoldAnswer: "Berlin", Category: "1", Answer: "Berlin"},
			{Question: "q2", GoldAnswer: "none", Category: "5", Answer: "nothing"},
			{Question: "q3", GoldAnswer: "Bruno", Category: "2", Answer: ""},
		},
	}

	if err := o.JudgeAll(context.Background(), NewJudge(judgeProvider), results); err != nil {
		t.Fatalf("JudgeAll: %v", err)
	}

	if got := results["0"][0].Judgment; got != JudgmentCorrect {
		t.Errorf("expected judged result, got %q", got)
	}
	if results["0"][1].Judgment != "" {
		t.Error("adversarial category must not be judged")
	}
	if results["0"][2].Judgment != "" {
		t.Error("empty answers must not be judged")
	}
	if calls := len(judgeProvider.Calls()); calls != 1 {
		t.Errorf("expected exactly 1 judge call, got %d", calls)
	}
}
