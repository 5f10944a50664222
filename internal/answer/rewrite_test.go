package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mnemora/membench/pkg/provider/llm"
	"github.com/mnemora/membench/pkg/provider/llm/mock"
)

func TestRewriteReplacesQuestion(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `"Where did Alice travel in May 2023?"`},
	}
	r := NewRewriter(provider)

	got := r.Rewrite(context.Background(), "Where did she travel?", "Alice")
	if got != "Where did Alice travel in May 2023?" {
		t.Errorf("unexpected rewrite: %q", got)
	}

	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(calls))
	}
	req := calls[0].Req
	if req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
	if req.MaxTokens != rewriteMaxTokens {
		t.Errorf("expected max tokens %d, got %d", rewriteMaxTokens, req.MaxTokens)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "\n" {
		t.Errorf("expected newline stop sequence, got %v", req.Stop)
	}
	if !strings.Contains(req.Messages[0].Content, "Target Person: Alice") {
		t.Errorf("prompt missing target person: %q", req.Messages[0].Content)
	}
}

func TestRewriteFailsOpen(t *testing.T) {
	t.Parallel()

	r := NewRewriter(&mock.Provider{CompleteErr: errors.New("rate limited")})

	if got := r.Rewrite(context.Background(), "Where did she travel?", "Alice"); got != "Where did she travel?" {
		t.Errorf("expected original question on error, got %q", got)
	}
}

func TestRewriteEmptyOutputFallsBack(t *testing.T) {
	t.Parallel()

	r := NewRewriter(&mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "  \"\"  "},
	})

	if got := r.Rewrite(context.Background(), "original", "Alice"); got != "original" {
		t.Errorf("expected original question on empty rewrite, got %q", got)
	}
}
