package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlMemories = `
CREATE TABLE IF NOT EXISTS memories (
    id              UUID         PRIMARY KEY,
    namespace       TEXT         NOT NULL,
    user_id         TEXT         NOT NULL,
    conversation_id TEXT         NOT NULL DEFAULT '',
    role            TEXT         NOT NULL DEFAULT 'user',
    content         TEXT         NOT NULL,
    embedding       VECTOR(%d)   NOT NULL,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_memories_ns_user
    ON memories (namespace, user_id);

CREATE INDEX IF NOT EXISTS idx_memories_embedding
    ON memories USING hnsw (embedding vector_cosine_ops);
`

// Migrate installs the pgvector extension and creates the memories table with
// the given embedding dimension. Changing the dimension after the first
// migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("pgvector migrate: embeddingDimensions must be positive, got %d", embeddingDimensions)
	}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("pgvector migrate: create extension: %w", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(ddlMemories, embeddingDimensions)); err != nil {
		return fmt.Errorf("pgvector migrate: create memories table: %w", err)
	}
	return nil
}
