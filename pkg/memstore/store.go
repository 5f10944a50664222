// Package memstore defines the client abstraction over a per-speaker
// conversational memory store.
//
// The benchmark uses two independently keyed store instances — the origin
// store holding raw conversation logs and the process store holding
// fact-extracted memories. Both are instances of the same [Store] interface
// differing only in credential/namespace; raw-vs-fact is an A/B architecture,
// not two code paths.
//
// Search deliberately returns the decoded wire value as `any`: the hosted
// service's response shape is not stable (object, map, bare list, or a
// tuple-like wrapper have all been observed), so shape normalization is the
// caller's responsibility (see internal/retrieval).
//
// Implementations must be safe for concurrent use.
package memstore

import "context"

// Message is the wire shape of a single memory entry written to a store.
type Message struct {
	// Role tags the entry from the owning speaker's perspective:
	// "user" for the speaker's own turns, "assistant" for the interlocutor's.
	Role string `json:"role"`

	// Content is the entry text, conventionally "Speaker: utterance" for raw
	// logs and "Speaker: fact" for extracted facts.
	Content string `json:"content"`

	// ChatTime is the absolute timestamp of the session the entry came from.
	ChatTime string `json:"chat_time,omitempty"`
}

// MemoryDetail is one retrieved memory inside a search response.
type MemoryDetail struct {
	// MemoryValue is the stored content.
	MemoryValue string `json:"memory_value"`

	// ConversationID carries the session timestamp the entry was written under;
	// the ingestor passes the timestamp as the conversation ID so retrieval
	// stays chronologically attributable.
	ConversationID string `json:"conversation_id"`

	// Relativity is the store's relevance score for the query, if reported.
	Relativity float64 `json:"relativity,omitempty"`
}

// SearchData is the payload of a well-formed search response.
type SearchData struct {
	MemoryDetailList []MemoryDetail `json:"memory_detail_list"`
}

// SearchResponse is the canonical object-shaped search response. Backends that
// control their own wire format (e.g., the pgvector backend) return *SearchResponse
// directly; the hosted client returns whatever shape the service produced.
type SearchResponse struct {
	Data SearchData `json:"data"`
}

// Store is a per-speaker memory store keyed by user ID.
type Store interface {
	// Add writes messages under userID. conversationID groups the write; the
	// benchmark passes the session's absolute timestamp so entries stay dateable.
	Add(ctx context.Context, messages []Message, userID, conversationID string) error

	// Search retrieves memories relevant to query for userID and returns the
	// decoded response verbatim. The shape varies by backend and service
	// version; callers must normalize defensively.
	Search(ctx context.Context, query, userID, conversationID string) (any, error)
}
