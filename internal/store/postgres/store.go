package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/NWeiss87/auricle/internal/store"
	"github.com/NWeiss87/auricle/pkg/provider/embeddings"
)

// Compile-time interface checks.
var (
	_ store.Archiver = (*Store)(nil)
	_ store.Searcher = (*Store)(nil)
)

// Store is the PostgreSQL-backed analysis archive. It holds a single
// [pgxpool.Pool] and an optional embeddings provider for the chunk index.
//
// All operations are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// New creates a new Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] to ensure all required tables and extensions exist.
//
// embedder may be nil: documents and chunk texts are still archived, the
// embedding column stays NULL and [Store.SearchChunks] returns
// [ErrNoEmbedder]. When embedder is non-nil its output dimension must match
// embeddingDimensions.
func New(ctx context.Context, dsn string, embedder embeddings.Provider, embeddingDimensions int) (*Store, error) {
	if embeddingDimensions <= 0 {
		return nil, fmt.Errorf("analysis store: embedding dimensions must be positive, got %d", embeddingDimensions)
	}
	if embedder != nil && embedder.Dimensions() != embeddingDimensions {
		return nil, fmt.Errorf("analysis store: embedder %q produces %d dimensions, schema expects %d",
			embedder.ModelID(), embedder.Dimensions(), embeddingDimensions)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("analysis store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("analysis store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("analysis store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, embedder: embedder}, nil
}

// Close releases all connections held by the underlying connection pool.
// It should be called when the Store is no longer needed, typically via defer.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection. It backs the readiness probe of the
// ops server.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// BeginRun implements [store.Archiver]. Recording the same run twice is not
// an error; the original start time wins.
func (s *Store) BeginRun(ctx context.Context, runID string) error {
	const q = `INSERT INTO runs (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, q, runID); err != nil {
		return fmt.Errorf("analysis store: begin run: %w", err)
	}
	return nil
}

// FinishRun implements [store.Archiver]. It stamps the run finished and
// stores its file tally.
func (s *Store) FinishRun(ctx context.Context, runID string, tally store.RunTally) error {
	const q = `
		UPDATE runs
		SET    finished_at   = now(),
		       files_ok      = $2,
		       files_failed  = $3,
		       files_skipped = $4
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, runID, tally.Succeeded, tally.Failed, tally.Skipped)
	if err != nil {
		return fmt.Errorf("analysis store: finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis store: finish run: run %q not found", runID)
	}
	return nil
}

// ArchiveDocument implements [store.Archiver]. It embeds every chunk text in
// a single provider call, then upserts the document row and replaces its
// chunk and label rows in one transaction. Re-archiving the same transcript
// under the same run replaces the earlier archive.
func (s *Store) ArchiveDocument(ctx context.Context, runID string, doc store.Document) error {
	rootJSON, err := json.Marshal(doc.ChunkRoot)
	if err != nil {
		return fmt.Errorf("analysis store: marshal chunk root of %q: %w", doc.TranscriptName, err)
	}

	vectors, err := s.embedChunks(ctx, doc.Chunks)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("analysis store: begin archive: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer func() { _ = tx.Rollback(ctx) }()

	const insertDoc = `
		INSERT INTO documents
		    (run_id, transcript_name, audio_name, output_name, recorded_at, duration_seconds, chunk_root)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, transcript_name) DO UPDATE SET
		    audio_name       = EXCLUDED.audio_name,
		    output_name      = EXCLUDED.output_name,
		    recorded_at      = EXCLUDED.recorded_at,
		    duration_seconds = EXCLUDED.duration_seconds,
		    chunk_root       = EXCLUDED.chunk_root
		RETURNING id`

	var docPK int64
	if err := tx.QueryRow(ctx, insertDoc,
		runID,
		doc.TranscriptName,
		doc.AudioName,
		doc.OutputName,
		doc.RecordedAt,
		doc.DurationSeconds,
		rootJSON,
	).Scan(&docPK); err != nil {
		return fmt.Errorf("analysis store: archive document %q: %w", doc.TranscriptName, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docPK); err != nil {
		return fmt.Errorf("analysis store: clear prior chunks of %q: %w", doc.TranscriptName, err)
	}

	const insertChunk = `
		INSERT INTO chunks
		    (document_id, chunk_id, text, embedding, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	const insertLabel = `
		INSERT INTO chunk_labels (chunk_pk, kind, label)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	for i, c := range doc.Chunks {
		var embedding any
		if vectors != nil {
			embedding = pgvector.NewVector(vectors[i])
		}

		var chunkPK int64
		if err := tx.QueryRow(ctx, insertChunk,
			docPK, c.ID, c.Text, embedding, c.Start, c.End,
		).Scan(&chunkPK); err != nil {
			return fmt.Errorf("analysis store: archive chunk %d of %q: %w", c.ID, doc.TranscriptName, err)
		}

		for _, p := range labelPairs(c) {
			if _, err := tx.Exec(ctx, insertLabel, chunkPK, p.kind, p.label); err != nil {
				return fmt.Errorf("analysis store: archive label %q of chunk %d: %w", p.label, c.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("analysis store: commit archive of %q: %w", doc.TranscriptName, err)
	}
	return nil
}

// embedChunks embeds every chunk's text in one provider call. A nil embedder
// yields nil vectors so chunks are archived text-only.
func (s *Store) embedChunks(ctx context.Context, chunks []store.Chunk) ([][]float32, error) {
	if s.embedder == nil || len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunkTexts(chunks))
	if err != nil {
		return nil, fmt.Errorf("analysis store: embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("analysis store: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

// chunkTexts extracts chunk texts in order for batch embedding.
func chunkTexts(chunks []store.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// labelPair is one chunk_labels row.
type labelPair struct {
	kind  string
	label string
}

// labelPairs flattens a chunk's tags and keyphrases into label rows,
// dropping blanks.
func labelPairs(c store.Chunk) []labelPair {
	pairs := make([]labelPair, 0, len(c.Tags)+len(c.Keyphrases))
	for _, t := range c.Tags {
		if t == "" {
			continue
		}
		pairs = append(pairs, labelPair{kind: "tag", label: t})
	}
	for _, k := range c.Keyphrases {
		if k == "" {
			continue
		}
		pairs = append(pairs, labelPair{kind: "keyphrase", label: k})
	}
	return pairs
}
