// Package mock provides a test double for the memstore.Store interface.
//
// All fields are exported for configuration; invocations are recorded and safe
// to inspect after concurrent use.
//
// Example:
//
//	st := &mock.Store{
//	    SearchResult: map[string]any{"data": map[string]any{"memory_detail_list": []any{}}},
//	}
//	res, err := st.Search(ctx, "query", "Alice_0", "search")
package mock

import (
	"context"
	"sync"

	"github.com/mnemora/membench/pkg/memstore"
)

// AddCall records a single invocation of Add.
type AddCall struct {
	// Messages is the batch passed to Add.
	Messages []memstore.Message
	// UserID is the store key passed to Add.
	UserID string
	// ConversationID is the grouping ID passed to Add.
	ConversationID string
}

// SearchCall records a single invocation of Search.
type SearchCall struct {
	// Query is the query text passed to Search.
	Query string
	// UserID is the store key passed to Search.
	UserID string
	// ConversationID is the grouping ID passed to Search.
	ConversationID string
}

// Store is a mock implementation of memstore.Store.
type Store struct {
	mu sync.Mutex

	// AddErr, if non-nil, is returned by every Add call.
	AddErr error

	// AddErrs, if non-empty, is consumed one error per Add call (nil entries
	// mean success) before falling back to AddErr. Useful for retry tests.
	AddErrs []error

	// SearchResult is returned by Search.
	SearchResult any

	// SearchErr, if non-nil, is returned as the error from Search.
	SearchErr error

	// SearchFunc, if non-nil, is invoked instead of returning the static
	// fields above.
	SearchFunc func(ctx context.Context, query, userID, conversationID string) (any, error)

	// AddCalls records all Add invocations in order.
	AddCalls []AddCall

	// SearchCalls records all Search invocations in order.
	SearchCalls []SearchCall
}

// Ensure Store implements the memstore.Store interface.
var _ memstore.Store = (*Store)(nil)

// Add implements memstore.Store.
func (s *Store) Add(ctx context.Context, messages []memstore.Message, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]memstore.Message, len(messages))
	copy(msgs, messages)
	s.AddCalls = append(s.AddCalls, AddCall{
		Messages:       msgs,
		UserID:         userID,
		ConversationID: conversationID,
	})

	if len(s.AddErrs) > 0 {
		err := s.AddErrs[0]
		s.AddErrs = s.AddErrs[1:]
		return err
	}
	return s.AddErr
}

// Search implements memstore.Store.
func (s *Store) Search(ctx context.Context, query, userID, conversationID string) (any, error) {
	s.mu.Lock()
	s.SearchCalls = append(s.SearchCalls, SearchCall{
		Query:          query,
		UserID:         userID,
		ConversationID: conversationID,
	})
	fn := s.SearchFunc
	res, err := s.SearchResult, s.SearchErr
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, userID, conversationID)
	}
	return res, err
}

// Added returns a snapshot of all recorded Add invocations.
func (s *Store) Added() []AddCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AddCall, len(s.AddCalls))
	copy(out, s.AddCalls)
	return out
}

// Searched returns a snapshot of all recorded Search invocations.
func (s *Store) Searched() []SearchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SearchCall, len(s.SearchCalls))
	copy(out, s.SearchCalls)
	return out
}
