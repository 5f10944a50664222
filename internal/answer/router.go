// Package answer turns a benchmark question into a scored-ready answer string:
// it routes the question to the speakers it mentions, optionally rewrites it
// for search, retrieves dual-store evidence per speaker, synthesizes an answer
// with a completion provider, and normalizes the output for exact matching.
package answer

import "strings"

// Speaker identifies one conversation participant for routing and retrieval.
type Speaker struct {
	// Name is the display name as it appears in the dialogue.
	Name string

	// ID is the store-level speaker identity (see dataset.SpeakerID).
	ID string
}

// Route decides which speakers' memories a question should be answered from.
// A question naming exactly one of the two speakers (case-insensitive
// substring match) is routed to that speaker alone; naming both, or neither,
// routes to both. Erring toward both costs extra retrieval but never loses
// evidence.
func Route(question string, a, b Speaker) []Speaker {
	q := strings.ToLower(question)
	mentionsA := a.Name != "" && strings.Contains(q, strings.ToLower(a.Name))
	mentionsB := b.Name != "" && strings.Contains(q, strings.ToLower(b.Name))

	switch {
	case mentionsA && !mentionsB:
		return []Speaker{a}
	case mentionsB && !mentionsA:
		return []Speaker{b}
	default:
		return []Speaker{a, b}
	}
}
