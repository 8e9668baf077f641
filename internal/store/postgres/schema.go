// Package postgres provides the PostgreSQL-backed implementation of the
// analysis archive ([store.Archiver] and [store.Searcher]).
//
// All tables share a single [pgxpool.Pool] connection pool. The pgvector
// extension must be available in the target database; [Migrate] installs it
// automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	st, err := postgres.New(ctx, dsn, embedder, 768)
//	if err != nil { … }
//	defer st.Close()
//
//	_ = st.BeginRun(ctx, runID)
//	_ = st.ArchiveDocument(ctx, runID, doc)
//	_ = st.FinishRun(ctx, runID, tally)
//
//	hits, _ := st.SearchChunks(ctx, "tension about money", 5, store.SearchFilter{})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// DDL — batch runs and archived documents
// ─────────────────────────────────────────────────────────────────────────────

const ddlRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT         PRIMARY KEY,
    started_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    finished_at   TIMESTAMPTZ,
    files_ok      INTEGER      NOT NULL DEFAULT 0,
    files_failed  INTEGER      NOT NULL DEFAULT 0,
    files_skipped INTEGER      NOT NULL DEFAULT 0
);
`

const ddlDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id               BIGSERIAL    PRIMARY KEY,
    run_id           TEXT         NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    transcript_name  TEXT         NOT NULL,
    audio_name       TEXT         NOT NULL DEFAULT '',
    output_name      TEXT         NOT NULL DEFAULT '',
    recorded_at      TIMESTAMPTZ  NOT NULL,
    duration_seconds INTEGER      NOT NULL DEFAULT 0,
    chunk_root       JSONB        NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    UNIQUE (run_id, transcript_name)
);

CREATE INDEX IF NOT EXISTS idx_documents_run_id
    ON documents (run_id);

CREATE INDEX IF NOT EXISTS idx_documents_recorded_at
    ON documents (recorded_at);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — chunk index (text + embedding + labels)
// ─────────────────────────────────────────────────────────────────────────────

const ddlChunkLabels = `
CREATE TABLE IF NOT EXISTS chunk_labels (
    chunk_pk BIGINT NOT NULL REFERENCES chunks (id) ON DELETE CASCADE,
    kind     TEXT   NOT NULL,
    label    TEXT   NOT NULL,
    PRIMARY KEY (chunk_pk, kind, label)
);

CREATE INDEX IF NOT EXISTS idx_chunk_labels_label
    ON chunk_labels (label);
`

// ddlChunks returns the chunk-index DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlChunks(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
    id          BIGSERIAL    PRIMARY KEY,
    document_id BIGINT       NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
    chunk_id    INTEGER      NOT NULL,
    text        TEXT         NOT NULL,
    embedding   vector(%d),
    started_at  TIMESTAMPTZ  NOT NULL,
    ended_at    TIMESTAMPTZ  NOT NULL,
    UNIQUE (document_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id
    ON chunks (document_id);

CREATE INDEX IF NOT EXISTS idx_chunks_embedding
    ON chunks USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every run.
//
// embeddingDimensions must match the vector model configured for your
// deployment (e.g., 1536 for OpenAI text-embedding-3-small, 768 for
// nomic-embed-text). Changing this value after the first migration requires
// a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlRuns,
		ddlDocuments,
		ddlChunks(embeddingDimensions),
		ddlChunkLabels,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("analysis store: migrate: %w", err)
		}
	}
	return nil
}
