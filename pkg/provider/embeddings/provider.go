// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// The analysis archive embeds every chunk's text when a document is
// archived, and embeds search queries the same way, so "find the entries
// where I talked about X" works across years of journal files regardless of
// wording. Any backend that maps text to fixed-length float32 vectors fits:
// the OpenAI embeddings API, a local Ollama model, or a sentence
// transformer behind either of them.
package embeddings

import "context"

// Provider turns text into dense vectors.
//
// All vectors produced by one Provider share the length reported by
// Dimensions, and only vectors from the same model occupy the same space;
// the archive enforces this by pinning the model and dimension at store
// construction. Implementations must be safe for concurrent use.
type Provider interface {
	// Embed returns the vector for one text. Text is passed to the backend
	// verbatim; when a model wants task prefixes ("query: ", "passage: "),
	// adding them is the caller's job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per entry of texts, in input order, from
	// a single backend call. It never returns partial results: any failure
	// fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every vector this provider produces.
	Dimensions() int

	// ModelID names the underlying embedding model, for logs and for the
	// archive's dimension check.
	ModelID() string
}
