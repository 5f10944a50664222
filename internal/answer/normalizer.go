package answer

import (
	"regexp"
	"strings"
)

var (
	labelPrefix    = regexp.MustCompile(`(?i)^(answer|output)\s*:\s*`)
	bulletPrefix   = regexp.MustCompile(`^[-*\x{2022}]\s*`)
	bracketChars   = regexp.MustCompile(`[\[\](){}]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// emphasisMarks removes doubled markdown emphasis and backticks. Single "*"
// and "_" stay: they can be part of the answer itself.
var emphasisMarks = strings.NewReplacer("**", "", "__", "", "`", "")

// yesNoCategory marks dataset questions whose gold answer is exactly yes or no.
const yesNoCategory = "4"

// yesNoQuestionPrefixes is the closed set of question openings (auxiliary or
// modal verb plus a space) that mark a yes/no-shaped question.
var yesNoQuestionPrefixes = []string{
	"is ", "are ", "was ", "were ",
	"do ", "does ", "did ",
	"has ", "have ", "had ",
	"can ", "could ", "should ", "would ", "will ",
}

// Normalize deterministically cleans a raw model answer into a short string
// suitable for exact-match scoring. The steps run in a fixed order: keep the
// first non-blank line, strip an "Answer:"/"Output:" label and bullet markers,
// remove doubled markdown emphasis and backticks, strip a leading
// "<speaker> is/was/has/had" prefix for any known speaker name, trim
// surrounding brackets and replace interior ones with spaces, drop trailing
// sentence punctuation, and collapse whitespace.
//
// Normalize is pure and idempotent.
func Normalize(raw string, speakerNames []string) string {
	text := firstNonBlankLine(raw)

	text = labelPrefix.ReplaceAllString(text, "")
	text = bulletPrefix.ReplaceAllString(text, "")
	text = emphasisMarks.Replace(text)
	text = strings.TrimSpace(text)

	text = stripSpeakerCopula(text, speakerNames)

	text = strings.TrimSpace(strings.Trim(text, "()[]{}"))
	text = bracketChars.ReplaceAllString(text, " ")
	text = strings.TrimRight(strings.TrimSpace(text), ".?!")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ConstrainYesNo collapses an answer to exactly "Yes" or "No" for the yes/no
// category, when the question opens with an auxiliary or modal verb and the
// answer leads with yes or no. All other categories pass through unchanged.
func ConstrainYesNo(answer, question, category string) string {
	if category != yesNoCategory {
		return answer
	}

	q := strings.ToLower(strings.TrimSpace(question))
	shaped := false
	for _, prefix := range yesNoQuestionPrefixes {
		if strings.HasPrefix(q, prefix) {
			shaped = true
			break
		}
	}
	if !shaped {
		return answer
	}

	a := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.HasPrefix(a, "yes"):
		return "Yes"
	case strings.HasPrefix(a, "no"):
		return "No"
	default:
		return answer
	}
}

// firstNonBlankLine returns the first line of s with visible content.
func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// stripSpeakerCopula removes a leading "<name> is|was|has|had " prefix when
// name is a known speaker, converting "John is a teacher" into "a teacher" to
// match gold-answer phrasing.
func stripSpeakerCopula(text string, speakerNames []string) string {
	lower := strings.ToLower(text)
	for _, name := range speakerNames {
		if name == "" {
			continue
		}
		for _, verb := range []string{"is", "was", "has", "had"} {
			prefix := strings.ToLower(name) + " " + verb + " "
			if strings.HasPrefix(lower, prefix) {
				return strings.TrimSpace(text[len(prefix):])
			}
		}
	}
	return text
}
