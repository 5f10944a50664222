package eval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mnemora/membench/pkg/provider/llm"
	"github.com/mnemora/membench/pkg/provider/llm/mock"
)

func TestJudgeParsesVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"clean json correct", `{"label": "CORRECT"}`, JudgmentCorrect},
		{"clean json wrong", `{"label": "WRONG"}`, JudgmentWrong},
		{"json says incorrect", `{"label": "incorrect"}`, JudgmentWrong},
		{"embedded json", "Sure! Here is my verdict: {\"label\": \"CORRECT\"} as requested.", JudgmentCorrect},
		{"keyword correct", "The prediction is CORRECT because the dates match.", JudgmentCorrect},
		{"keyword wrong", "That answer is wrong.", JudgmentWrong},
		{"keyword incorrect beats correct substring", "The answer is incorrect.", JudgmentWrong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			j := NewJudge(&mock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: tc.content},
			})
			got, err := j.Judge(context.Background(), "q", "gold", "predicted")
			if err != nil {
				t.Fatalf("Judge: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestJudgeUnparseableVerdict(t *testing.T) {
	t.Parallel()

	j := NewJudge(&mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "I cannot decide."},
	})
	if _, err := j.Judge(context.Background(), "q", "gold", "predicted"); err == nil {
		t.Fatal("expected error for unparseable verdict")
	}
}

func TestJudgeProviderError(t *testing.T) {
	t.Parallel()

	j := NewJudge(&mock.Provider{CompleteErr: errors.New("boom")})
	if _, err := j.Judge(context.Background(), "q", "gold", "predicted"); err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestJudgeSendsAllThreeFields(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"label": "WRONG"}`},
	}
	j := NewJudge(provider)

	if _, err := j.Judge(context.Background(), "Where does Alice live?", "Berlin", "Paris"); err != nil {
		t.Fatalf("Judge: %v", err)
	}

	req := provider.Calls()[0].Req
	user := req.Messages[1].Content
	for _, want := range []string{"Where does Alice live?", "Berlin", "Paris"} {
		if !strings.Contains(user, want) {
			t.Errorf("judge prompt missing %q:\n%s", want, user)
		}
	}
	if req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
}
