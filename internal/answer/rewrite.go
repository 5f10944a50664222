package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mnemora/membench/pkg/provider/llm"
)

const rewriteMaxTokens = 64

// Rewriter resolves pronouns in a question against a single known target so
// the semantic search query is self-contained.
type Rewriter struct {
	provider llm.Provider
}

// NewRewriter creates a [Rewriter] backed by the given provider.
func NewRewriter(provider llm.Provider) *Rewriter {
	return &Rewriter{provider: provider}
}

// Rewrite returns a search-optimized form of question with pronouns replaced
// by targetName. Decoding is greedy and capped at one line so the output stays
// a bare question string.
//
// Failure policy: on any provider error, or an empty rewrite, the original
// question is returned unchanged. A degraded search query is strictly better
// than no answer attempt.
func (r *Rewriter) Rewrite(ctx context.Context, question, targetName string) string {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(rewritePrompt, question, targetName, targetName),
			},
		},
		Temperature: 0,
		MaxTokens:   rewriteMaxTokens,
		Stop:        []string{"\n"},
	})
	if err != nil {
		slog.Warn("query rewrite failed, using original question",
			"target", targetName, "error", err)
		return question
	}

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"`))
	if rewritten == "" {
		return question
	}
	return rewritten
}
