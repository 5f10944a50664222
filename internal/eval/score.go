package eval

import (
	"math"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// TokenF1 computes the token-level F1 overlap between a predicted and gold
// answer, both lowercased and stripped of punctuation. Returns 1 when both
// tokenize to nothing.
func TokenF1(predicted, gold string) float64 {
	p := tokenize(predicted)
	g := tokenize(gold)
	if len(p) == 0 && len(g) == 0 {
		return 1
	}
	if len(p) == 0 || len(g) == 0 {
		return 0
	}

	counts := make(map[string]int, len(g))
	for _, t := range g {
		counts[t]++
	}
	common := 0
	for _, t := range p {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}
	if common == 0 {
		return 0
	}

	precision := float64(common) / float64(len(p))
	recall := float64(common) / float64(len(g))
	return 2 * precision * recall / (precision + recall)
}

// BLEU1 computes clipped unigram precision of the prediction against the gold
// answer with the standard brevity penalty for short predictions.
func BLEU1(predicted, gold string) float64 {
	p := tokenize(predicted)
	g := tokenize(gold)
	if len(p) == 0 || len(g) == 0 {
		return 0
	}

	counts := make(map[string]int, len(g))
	for _, t := range g {
		counts[t]++
	}
	matched := 0
	for _, t := range p {
		if counts[t] > 0 {
			counts[t]--
			matched++
		}
	}

	precision := float64(matched) / float64(len(p))
	if len(p) < len(g) {
		// Brevity penalty exp(1 - |g|/|p|).
		precision *= math.Exp(1 - float64(len(g))/float64(len(p)))
	}
	return precision
}

// Similarity scores the two answers with Jaro-Winkler over the lowercased
// strings, giving partial credit for near-miss spellings and reorderings that
// token overlap misses.
func Similarity(predicted, gold string) float64 {
	return matchr.JaroWinkler(strings.ToLower(predicted), strings.ToLower(gold), false)
}

// tokenize lowercases, strips punctuation, and splits on whitespace.
func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(cleaned)
}
