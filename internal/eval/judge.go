package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mnemora/membench/pkg/provider/llm"
)

// Judge labels: the only two verdicts a judgment can carry.
const (
	JudgmentCorrect = "CORRECT"
	JudgmentWrong   = "WRONG"
)

// adversarialCategory marks questions whose gold answer asserts the absence
// of information; they are excluded from judged accuracy.
const adversarialCategory = "5"

const judgeSystemPrompt = `You grade question-answering output against a gold answer.
Label the prediction CORRECT if it conveys the same fact as the gold answer, allowing
paraphrases, partial dates that match, and differences in phrasing. Label it WRONG otherwise.
Respond with JSON only: {"label": "CORRECT"} or {"label": "WRONG"}.`

const judgeUserPrompt = `Question: %s
Gold answer: %s
Predicted answer: %s`

var embeddedJSON = regexp.MustCompile(`\{[^{}]*\}`)

// Judge scores predicted answers with a completion provider.
type Judge struct {
	provider llm.Provider
}

// NewJudge creates a [Judge] backed by the given provider.
func NewJudge(provider llm.Provider) *Judge {
	return &Judge{provider: provider}
}

// Judge returns [JudgmentCorrect] or [JudgmentWrong] for one prediction.
// The model's reply is parsed as JSON first, then as JSON embedded in
// surrounding prose, then by keyword scan; only when all three fail is an
// error returned.
func (j *Judge) Judge(ctx context.Context, question, gold, predicted string) (string, error) {
	resp, err := j.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(judgeUserPrompt, question, gold, predicted)},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("judge completion: %w", err)
	}

	label, ok := parseJudgment(resp.Content)
	if !ok {
		return "", fmt.Errorf("judge returned unparseable verdict: %q", resp.Content)
	}
	return label, nil
}

// parseJudgment extracts a verdict from the model reply.
func parseJudgment(content string) (string, bool) {
	var payload struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		if label, ok := canonicalLabel(payload.Label); ok {
			return label, true
		}
	}

	if m := embeddedJSON.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), &payload); err == nil {
			if label, ok := canonicalLabel(payload.Label); ok {
				return label, true
			}
		}
	}

	// Keyword fallback. WRONG and INCORRECT are checked first because
	// "incorrect" contains "correct".
	upper := strings.ToUpper(content)
	switch {
	case strings.Contains(upper, JudgmentWrong), strings.Contains(upper, "INCORRECT"):
		return JudgmentWrong, true
	case strings.Contains(upper, JudgmentCorrect):
		return JudgmentCorrect, true
	default:
		return "", false
	}
}

func canonicalLabel(label string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case JudgmentCorrect:
		return JudgmentCorrect, true
	case JudgmentWrong, "INCORRECT":
		return JudgmentWrong, true
	default:
		return "", false
	}
}
