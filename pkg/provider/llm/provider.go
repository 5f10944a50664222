// Package llm defines the Provider interface for text-completion backends.
//
// A provider wraps a remote or local model API (e.g., OpenAI GPT-4o, Anthropic
// Claude, or an Ollama instance) and exposes a uniform synchronous completion
// interface so the benchmark pipeline never couples to a specific SDK. The
// harness only needs deterministic single-shot completions: fact extraction,
// query rewriting, answer synthesis, and judge labeling are all one
// request/one response.
//
// Implementations must be safe for concurrent use; the orchestrator issues
// completions from many worker goroutines at once.
package llm

import "context"

// Message represents a single role-tagged message in a completion request.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered message list sent to the model.
	Messages []Message

	// Temperature controls output randomness. The benchmark uses 0.0 almost
	// everywhere for reproducible scoring; implementations must transmit the
	// value even when it is zero rather than falling back to a provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// Stop lists sequences at which generation halts. The stop sequence itself
	// is not included in the returned content.
	Stop []string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any completion backend.
//
// Complete sends req to the model and waits for the full response. It returns
// an error if the request fails or ctx is cancelled before the completion
// arrives. Transient failures are the caller's concern: the ingestion and
// answering pipelines each apply their own fail-open or retry policy.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
