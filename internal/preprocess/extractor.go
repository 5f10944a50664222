package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mnemora/membench/pkg/provider/llm"
)

// extractionSystemPrompt instructs the model to compress a transcript chunk
// into atomic facts about one target speaker.
const extractionSystemPrompt = `You convert noisy multi-turn transcripts into atomic, factual memories for a single speaker.
Return JSON with the schema {"facts": ["fact 1", "fact 2"]}.
Rules:
  - Only capture statements explicitly made by the target speaker.
  - Keep each fact self-contained and reference concrete people, places, and dates.
  - Merge redundant utterances into one canonical statement.
  - Ignore speculation, hedging, or assistant utterances.
  - Prefer chronological phrasing using absolute dates if timestamps are provided.
  - Produce at most four high-quality facts per chunk; skip a chunk if nothing new is learned.`

// extractionTemperature is deliberately above zero: mild sampling variety
// produces better fact phrasing, and extraction output is not scored directly.
const extractionTemperature = 0.2

// DefaultMinFactWords is the word-count floor below which extracted facts are
// discarded as near-empty.
const DefaultMinFactWords = 5

// Source tags where an extraction result's turns came from. Surfacing the
// fallback explicitly lets callers log and meter how often a run silently
// stored raw turns instead of facts.
type Source string

const (
	// SourceFacts means the turns are extracted fact memories.
	SourceFacts Source = "facts"

	// SourceRawFallback means extraction failed or produced nothing, and the
	// turns are the original input unchanged.
	SourceRawFallback Source = "raw_fallback"
)

// Result carries the preprocessed turns and their provenance tag.
type Result struct {
	Turns  []Turn
	Source Source
}

// Extractor compresses chunked turns into fact-bearing turns via a completion
// provider.
type Extractor struct {
	provider     llm.Provider
	chunker      *Chunker
	minFactWords int
}

// ExtractorOption is a functional option for [NewExtractor].
type ExtractorOption func(*Extractor)

// WithChunker replaces the default chunker.
func WithChunker(c *Chunker) ExtractorOption {
	return func(e *Extractor) {
		if c != nil {
			e.chunker = c
		}
	}
}

// WithMinFactWords sets the word-count floor for surviving facts. Defaults to 5.
func WithMinFactWords(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.minFactWords = n
		}
	}
}

// NewExtractor creates an [Extractor] backed by the given provider.
func NewExtractor(provider llm.Provider, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		provider:     provider,
		chunker:      NewChunker(),
		minFactWords: DefaultMinFactWords,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract chunks turns and summarizes each chunk into dated facts attributed
// to speakerName. Each surviving fact becomes a turn with content
// "speakerName: fact" and the chunk's own timestamp (the conversation-level
// timestamp when the chunk carries none).
//
// Failure policy: a completion error degrades the entire call to the original
// turns (fail-open), as does an extraction that yields no facts at all — a
// non-empty input never produces an empty memory. The returned [Result.Source]
// tag tells the two cases apart from a successful extraction.
func (e *Extractor) Extract(ctx context.Context, turns []Turn, speakerName, conversationTimestamp string) (Result, error) {
	if len(turns) == 0 {
		return Result{Turns: nil, Source: SourceFacts}, nil
	}

	var processed []Turn
	for _, chunk := range e.chunker.Chunk(turns) {
		facts, err := e.summarizeChunk(ctx, chunk, speakerName)
		if err != nil {
			slog.Warn("fact extraction failed, falling back to raw turns",
				"speaker", speakerName, "error", err)
			return Result{Turns: turns, Source: SourceRawFallback}, nil
		}
		if len(facts) == 0 {
			continue
		}

		timestamp := chunk[len(chunk)-1].Timestamp
		if timestamp == "" {
			timestamp = conversationTimestamp
		}
		for _, fact := range facts {
			processed = append(processed, Turn{
				Role:      "user",
				Content:   fmt.Sprintf("%s: %s", speakerName, fact),
				Timestamp: timestamp,
			})
		}
	}

	if len(processed) == 0 {
		slog.Info("extraction yielded no facts, keeping raw turns", "speaker", speakerName)
		return Result{Turns: turns, Source: SourceRawFallback}, nil
	}
	return Result{Turns: processed, Source: SourceFacts}, nil
}

// summarizeChunk formats one chunk as a timestamped transcript and asks the
// provider for a fact list.
func (e *Extractor) summarizeChunk(ctx context.Context, chunk []Turn, speakerName string) ([]string, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{
				Role:    "system",
				Content: extractionSystemPrompt + "\nTarget speaker: " + speakerName + ".",
			},
			{
				Role:    "user",
				Content: formatChunk(chunk),
			},
		},
		Temperature: extractionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize chunk: %w", err)
	}
	return e.parseFacts(resp.Content), nil
}

// formatChunk renders a chunk as "[timestamp] ROLE: content" lines.
func formatChunk(chunk []Turn) string {
	lines := make([]string, 0, len(chunk))
	for _, t := range chunk {
		ts := t.Timestamp
		if ts == "" {
			ts = "unknown_time"
		}
		role := strings.ToUpper(t.Role)
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, role, strings.TrimSpace(t.Content)))
	}
	return strings.Join(lines, "\n")
}

// parseFacts decodes the model's {"facts": [...]} payload. When the content is
// not valid JSON it falls back to treating each non-empty line as one fact
// with leading bullet markers stripped. Facts below the word floor are dropped.
func (e *Extractor) parseFacts(content string) []string {
	var payload struct {
		Facts []string `json:"facts"`
	}

	raw := payload.Facts
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		raw = payload.Facts
	} else {
		for _, line := range strings.Split(content, "\n") {
			line = strings.Trim(line, "-* \t")
			if line != "" {
				raw = append(raw, line)
			}
		}
	}

	var facts []string
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if len(strings.Fields(f)) >= e.minFactWords {
			facts = append(facts, f)
		}
	}
	return facts
}
