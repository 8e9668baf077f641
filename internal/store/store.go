// Package store defines the analysis archive interfaces and their data types.
//
// The archive is optional: when a PostgreSQL DSN is configured, each batch
// run and every assembled analysis document are persisted for cross-file
// querying, and chunk texts are indexed by embedding vector for semantic
// lookup across journal entries. An empty DSN disables the archive and the
// batch driver runs with a nil [Archiver].
//
// The PostgreSQL implementation lives in the postgres subpackage; the mock
// subpackage provides a configurable test double.
package store

import (
	"context"
	"time"
)

// Chunk is one chunk's archived text with its clock window and labels.
type Chunk struct {
	// ID is the chunk's position within its recording, starting at 1.
	ID int

	// Text is the chunk's joined segment text.
	Text string

	// Start and End bound the chunk on the recording's calendar clock.
	Start time.Time
	End   time.Time

	// Tags and Keyphrases are the chunk's classified labels and extracted
	// keyphrases, archived as label rows for filtering.
	Tags       []string
	Keyphrases []string
}

// Document is the archived form of one recording's analysis output.
type Document struct {
	// TranscriptName is the source transcript's base filename.
	TranscriptName string

	// AudioName is the matched audio file's base name, empty when no
	// corresponding audio was found.
	AudioName string

	// OutputName is the analysis JSON filename the batch run wrote.
	OutputName string

	// RecordedAt is the recording's start time from its filename.
	RecordedAt time.Time

	// DurationSeconds is the recording's length from its filename.
	DurationSeconds int

	// ChunkRoot is the file-wide aggregated signal, stored as JSONB. Any
	// JSON-marshalable value is accepted.
	ChunkRoot any

	Chunks []Chunk
}

// RunTally summarizes a finished batch run.
type RunTally struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// SearchFilter narrows a semantic chunk search. Zero-valued fields are
// ignored; set fields combine with AND.
type SearchFilter struct {
	// TranscriptName restricts hits to chunks of one recording.
	TranscriptName string

	// Label restricts hits to chunks carrying this tag or keyphrase.
	Label string

	// After and Before bound the chunk start time.
	After  time.Time
	Before time.Time
}

// SearchResult is one semantic search hit, most similar first.
type SearchResult struct {
	TranscriptName string
	ChunkID        int
	Text           string
	Start          time.Time

	// Distance is the cosine distance between the query embedding and the
	// chunk embedding; smaller is more similar.
	Distance float64
}

// Archiver persists batch runs and their analysis documents.
//
// Implementations must be safe for concurrent use: the batch driver archives
// documents from parallel per-file workers.
type Archiver interface {
	// BeginRun records the start of a batch run under runID.
	BeginRun(ctx context.Context, runID string) error

	// FinishRun stamps the run finished and stores its file tally.
	FinishRun(ctx context.Context, runID string, tally RunTally) error

	// ArchiveDocument persists one recording's analysis document and
	// indexes its chunk texts under the run.
	ArchiveDocument(ctx context.Context, runID string, doc Document) error
}

// Searcher retrieves archived chunks by semantic similarity to a query.
type Searcher interface {
	// SearchChunks returns up to topK archived chunks closest to query,
	// filtered by filter, ordered by ascending distance.
	SearchChunks(ctx context.Context, query string, topK int, filter SearchFilter) ([]SearchResult, error)
}
