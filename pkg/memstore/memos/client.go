// Package memos provides a memstore.Store client for a hosted MemOS-style
// memory service over its JSON HTTP API.
//
// Two Client instances with different API keys realize the dual-store split:
// one key is bound to the origin (raw log) namespace, the other to the process
// (extracted fact) namespace.
package memos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mnemora/membench/pkg/memstore"
)

// Ensure Client implements the memstore.Store interface.
var _ memstore.Store = (*Client)(nil)

// DefaultBaseURL is the hosted service endpoint used when none is configured.
const DefaultBaseURL = "https://api.memos.ai"

const (
	addPath    = "/api/v1/memories"
	searchPath = "/api/v1/memories/search"
)

// Client implements memstore.Store against the hosted HTTP API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for Client.
type Option func(*Client)

// WithBaseURL overrides the default service endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the given API key. The key selects the store
// namespace server-side, so origin and process stores are just two Clients.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("memos: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// addRequest is the JSON payload for Add.
type addRequest struct {
	Messages       []addMessage `json:"messages"`
	UserID         string       `json:"user_id"`
	ConversationID string       `json:"conversation_id"`
}

type addMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ChatTime string `json:"chat_time,omitempty"`
}

// searchRequest is the JSON payload for Search.
type searchRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// Add implements memstore.Store.
func (c *Client) Add(ctx context.Context, messages []memstore.Message, userID, conversationID string) error {
	body := addRequest{
		UserID:         userID,
		ConversationID: conversationID,
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, addMessage{
			Role:     m.Role,
			Content:  m.Content,
			ChatTime: m.ChatTime,
		})
	}

	resp, err := c.post(ctx, addPath, body)
	if err != nil {
		return fmt.Errorf("memos: add for %q: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memos: add for %q: unexpected status %s", userID, resp.Status)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Search implements memstore.Store. The response body is decoded into `any`
// and returned verbatim: the service has shipped object-, list-, and
// tuple-shaped payloads across versions, and normalization belongs to the
// retrieval layer.
func (c *Client) Search(ctx context.Context, query, userID, conversationID string) (any, error) {
	body := searchRequest{
		Query:          query,
		UserID:         userID,
		ConversationID: conversationID,
	}

	resp, err := c.post(ctx, searchPath, body)
	if err != nil {
		return nil, fmt.Errorf("memos: search for %q: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("memos: search for %q: unexpected status %s", userID, resp.Status)
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("memos: search for %q: decode response: %w", userID, err)
	}
	return decoded, nil
}

// post sends a JSON POST with bearer auth to baseURL+path.
func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
