package memos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnemora/membench/pkg/memstore"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestAddSendsPayloadAndAuth(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New("secret-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	messages := []memstore.Message{
		{Role: "user", Content: "Alice: I moved to Berlin", ChatTime: "1:56 pm on 8 May, 2023"},
	}
	if err := c.Add(context.Background(), messages, "Alice_0", "1:56 pm on 8 May, 2023"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if gotPath != addPath {
		t.Errorf("expected path %q, got %q", addPath, gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["user_id"] != "Alice_0" {
		t.Errorf("expected user_id Alice_0, got %v", gotBody["user_id"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected 1 message in payload, got %v", gotBody["messages"])
	}
	msg := msgs[0].(map[string]any)
	if msg["chat_time"] != "1:56 pm on 8 May, 2023" {
		t.Errorf("expected chat_time in payload, got %v", msg)
	}
}

func TestAddNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	if err := c.Add(context.Background(), nil, "Alice_0", "ts"); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestSearchReturnsDecodedBodyVerbatim(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("expected path %q, got %q", searchPath, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"memory_detail_list": [{"memory_value": "Alice: fact", "conversation_id": "2023-05-08"}]}}`))
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	res, err := c.Search(context.Background(), "where", "Alice_0", "search")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	obj, ok := res.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded object, got %T", res)
	}
	data := obj["data"].(map[string]any)
	list := data["memory_detail_list"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(list))
	}
}

func TestSearchMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	if _, err := c.Search(context.Background(), "q", "u", "c"); err == nil {
		t.Fatal("expected decode error")
	}
}
