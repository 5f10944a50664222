package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnemora/membench/internal/retrieval"
	"github.com/mnemora/membench/pkg/provider/llm"
)

// EvidenceRetriever fetches dual-store evidence for one speaker and query.
// [retrieval.Retriever] is the production implementation.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, speakerID, query string) (raw, fact []retrieval.Record)
}

// Synthesizer answers one question from three evidence channels: the full
// conversation transcript plus the raw and fact memories retrieved per routed
// speaker.
type Synthesizer struct {
	provider  llm.Provider
	retriever EvidenceRetriever
	rewriter  *Rewriter
}

// NewSynthesizer creates a [Synthesizer]. The rewriter may be nil to disable
// query rewriting.
func NewSynthesizer(provider llm.Provider, retriever EvidenceRetriever, rewriter *Rewriter) *Synthesizer {
	return &Synthesizer{provider: provider, retriever: retriever, rewriter: rewriter}
}

// Synthesize retrieves evidence for each target speaker and asks the provider
// for an answer. The search query is the question itself, except when routing
// produced exactly one target: then the question is rewritten against that
// target's name first, so pronoun-heavy questions still retrieve well. The
// question sent to the answer prompt is always the original.
//
// Decoding is greedy (temperature 0) and stops at the first newline; the token
// budget depends on the question category. The returned string is the model's
// raw answer line, still to be normalized for scoring; the returned records
// are the merged evidence the answer was synthesized from.
func (s *Synthesizer) Synthesize(ctx context.Context, targets []Speaker, question, transcript, category string) (string, []retrieval.Record, error) {
	query := question
	if len(targets) == 1 && s.rewriter != nil {
		query = s.rewriter.Rewrite(ctx, question, targets[0].Name)
	}

	var raw, fact []retrieval.Record
	for _, t := range targets {
		r, f := s.retriever.Retrieve(ctx, t.ID, query)
		raw = append(raw, tagSpeaker(r, t.Name)...)
		fact = append(fact, tagSpeaker(f, t.Name)...)
	}

	template := answerPromptConcise
	maxTokens := maxTokensConcise
	if category == detailedCategory {
		template = answerPromptDetailed
		maxTokens = maxTokensDetailed
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{
				Role:    "system",
				Content: fmt.Sprintf(template, transcript, formatRecords(raw), formatRecords(fact), question),
			},
		},
		Temperature: 0,
		MaxTokens:   maxTokens,
		Stop:        []string{"\n"},
	})
	if err != nil {
		return "", nil, fmt.Errorf("synthesize answer: %w", err)
	}
	return resp.Content, append(raw, fact...), nil
}

// tagSpeaker stamps the owning speaker's display name onto retrieved records.
func tagSpeaker(records []retrieval.Record, name string) []retrieval.Record {
	for i := range records {
		records[i].Speaker = name
	}
	return records
}

// formatRecords renders evidence as "[speaker|timestamp] content" lines, or a
// placeholder when the channel came back empty.
func formatRecords(records []retrieval.Record) string {
	if len(records) == 0 {
		return "(none retrieved)"
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("[%s|%s] %s", r.Speaker, r.Timestamp, r.Content))
	}
	return strings.Join(lines, "\n")
}
