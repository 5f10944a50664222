// Package eval orchestrates the benchmark run: it ingests conversations,
// answers every question through the routing/retrieval/synthesis pipeline,
// persists incremental results, and scores them.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnemora/membench/internal/retrieval"
)

// QAResult records the outcome of answering one benchmark question.
type QAResult struct {
	Question   string `json:"question"`
	GoldAnswer string `json:"gold_answer"`
	Category   string `json:"category"`

	// Answer is the normalized synthesized answer, empty when the pipeline
	// failed for this question.
	Answer string `json:"answer"`

	// Evidence holds the retrieved records the answer was synthesized from.
	Evidence []retrieval.Record `json:"evidence,omitempty"`

	// DurationMS measures routing through normalization for this question.
	DurationMS int64 `json:"duration_ms"`

	// Lexical scores against the gold answer, computed at answer time.
	F1         float64 `json:"f1"`
	BLEU       float64 `json:"bleu"`
	Similarity float64 `json:"similarity"`

	// Judgment is "CORRECT" or "WRONG", filled in by the judge step. Empty
	// until judged; stays empty for categories the judge skips.
	Judgment string `json:"judgment,omitempty"`
}

// Results maps a conversation index (as a decimal string) to the ordered
// results of its questions.
type Results map[string][]QAResult

// SaveResults writes the full result set as indented JSON, replacing any
// previous file. The whole mapping is rewritten on every save so a partially
// completed run always leaves a consistent file behind.
func SaveResults(path string, results Results) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// LoadResults reads a result file previously written by [SaveResults].
func LoadResults(path string) (Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return results, nil
}
