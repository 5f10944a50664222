// Package pgvector provides a self-hosted memstore.Store backed by PostgreSQL
// with the pgvector extension.
//
// It embeds memory content client-side via an embeddings.Provider and answers
// searches with cosine nearest-neighbour lookup. Unlike the hosted client this
// backend controls its own wire format, so Search returns a typed
// *memstore.SearchResponse. Two Store instances with different namespaces
// realize the origin/process dual-store split for fully local benchmark runs.
//
// All operations are safe for concurrent use.
package pgvector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/mnemora/membench/pkg/memstore"
	"github.com/mnemora/membench/pkg/provider/embeddings"
)

// DefaultTopK is the search result cap used when none is configured.
const DefaultTopK = 10

// Ensure Store implements the memstore.Store interface.
var _ memstore.Store = (*Store)(nil)

// Store implements memstore.Store on PostgreSQL + pgvector.
type Store struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Provider
	namespace string
	topK      int
}

// Option is a functional option for Store.
type Option func(*Store)

// WithTopK caps the number of search results. Defaults to DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Store) {
		if k > 0 {
			s.topK = k
		}
	}
}

// New creates a Store, establishes a connection pool to the PostgreSQL database
// at dsn, registers pgvector types on every connection, and runs [Migrate] so
// the memories table and vector extension exist.
//
// namespace isolates store instances sharing one database ("origin" and
// "process" in a dual-store benchmark run). The embedder's Dimensions() must
// stay constant for the lifetime of the table.
func New(ctx context.Context, dsn, namespace string, embedder embeddings.Provider, opts ...Option) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("pgvector store: namespace must not be empty")
	}
	if embedder == nil {
		return nil, fmt.Errorf("pgvector store: embedder must not be nil")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can be
	// scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector store: migrate: %w", err)
	}

	s := &Store{
		pool:      pool,
		embedder:  embedder,
		namespace: namespace,
		topK:      DefaultTopK,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Add implements memstore.Store. Each message is embedded and inserted as one
// row; the batch shares a single EmbedBatch call.
func (s *Store) Add(ctx context.Context, messages []memstore.Message, userID, conversationID string) error {
	if len(messages) == 0 {
		return nil
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("pgvector store: embed batch for %q: %w", userID, err)
	}

	const q = `
		INSERT INTO memories
		    (id, namespace, user_id, conversation_id, role, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for i, m := range messages {
		batch.Queue(q,
			uuid.NewString(),
			s.namespace,
			userID,
			conversationID,
			m.Role,
			m.Content,
			pgvector.NewVector(vectors[i]),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range messages {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pgvector store: insert for %q: %w", userID, err)
		}
	}
	return nil
}

// Search implements memstore.Store. It embeds query and returns the topK rows
// for userID in this namespace ordered by ascending cosine distance, wrapped in
// the canonical object-shaped response.
func (s *Store) Search(ctx context.Context, query, userID, conversationID string) (any, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: embed query for %q: %w", userID, err)
	}

	const q = `
		SELECT content, conversation_id, 1 - (embedding <=> $1) AS relativity
		FROM   memories
		WHERE  namespace = $2
		  AND  user_id = $3
		ORDER  BY embedding <=> $1
		LIMIT  $4`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), s.namespace, userID, s.topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: search for %q: %w", userID, err)
	}

	details, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memstore.MemoryDetail, error) {
		var d memstore.MemoryDetail
		err := row.Scan(&d.MemoryValue, &d.ConversationID, &d.Relativity)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgvector store: collect rows for %q: %w", userID, err)
	}

	return &memstore.SearchResponse{
		Data: memstore.SearchData{MemoryDetailList: details},
	}, nil
}
