package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/NWeiss87/auricle/internal/store"
)

// ErrNoEmbedder is returned by [Store.SearchChunks] when the store was
// constructed without an embeddings provider.
var ErrNoEmbedder = errors.New("analysis store: no embeddings provider configured")

// SearchChunks implements [store.Searcher]. It embeds query, then finds the
// topK archived chunks whose embeddings are closest (cosine distance) to it,
// optionally narrowed by filter.
//
// Results are ordered by ascending cosine distance (most similar first).
func (s *Store) SearchChunks(ctx context.Context, query string, topK int, filter store.SearchFilter) ([]store.SearchResult, error) {
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analysis store: embed query: %w", err)
	}

	q, args := searchSQL(pgvector.NewVector(embedding), topK, filter)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("analysis store: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SearchResult, error) {
		var sr store.SearchResult
		if err := row.Scan(
			&sr.TranscriptName,
			&sr.ChunkID,
			&sr.Text,
			&sr.Start,
			&sr.Distance,
		); err != nil {
			return store.SearchResult{}, err
		}
		return sr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("analysis store: scan rows: %w", err)
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return results, nil
}

// searchSQL builds the similarity query and its argument list. $1 is always
// the query vector; filter conditions and the LIMIT take the following
// positions. Chunks archived without an embedding never match.
func searchSQL(vec pgvector.Vector, topK int, filter store.SearchFilter) (string, []any) {
	args := []any{vec} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"c.embedding IS NOT NULL"}
	if filter.TranscriptName != "" {
		conditions = append(conditions, "d.transcript_name = "+next(filter.TranscriptName))
	}
	if filter.Label != "" {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM chunk_labels l WHERE l.chunk_pk = c.id AND l.label = "+next(filter.Label)+")")
	}
	if !filter.After.IsZero() {
		conditions = append(conditions, "c.started_at > "+next(filter.After))
	}
	if !filter.Before.IsZero() {
		conditions = append(conditions, "c.started_at < "+next(filter.Before))
	}

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT d.transcript_name, c.chunk_id, c.text, c.started_at,
		       c.embedding <=> $1 AS distance
		FROM   chunks c
		JOIN   documents d ON d.id = c.document_id
		WHERE  %s
		ORDER  BY distance
		LIMIT  %s`, strings.Join(conditions, "\n\t\t  AND  "), limitArg)

	return q, args
}
