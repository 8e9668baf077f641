// Package mock provides configurable test doubles for the analysis archive
// interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/internal/store"
)

// FinishRunCall records one FinishRun invocation.
type FinishRunCall struct {
	RunID string
	Tally store.RunTally
}

// ArchiveDocumentCall records one ArchiveDocument invocation.
type ArchiveDocumentCall struct {
	RunID string
	Doc   store.Document
}

// Archiver implements store.Archiver with canned errors.
type Archiver struct {
	mu sync.Mutex

	BeginRunErr        error
	FinishRunErr       error
	ArchiveDocumentErr error

	BeginRunCalls        []string
	FinishRunCalls       []FinishRunCall
	ArchiveDocumentCalls []ArchiveDocumentCall
}

var _ store.Archiver = (*Archiver)(nil)

func (a *Archiver) BeginRun(_ context.Context, runID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.BeginRunCalls = append(a.BeginRunCalls, runID)
	return a.BeginRunErr
}

func (a *Archiver) FinishRun(_ context.Context, runID string, tally store.RunTally) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.FinishRunCalls = append(a.FinishRunCalls, FinishRunCall{RunID: runID, Tally: tally})
	return a.FinishRunErr
}

func (a *Archiver) ArchiveDocument(_ context.Context, runID string, doc store.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ArchiveDocumentCalls = append(a.ArchiveDocumentCalls, ArchiveDocumentCall{RunID: runID, Doc: doc})
	return a.ArchiveDocumentErr
}

// Reset clears recorded calls and configured errors.
func (a *Archiver) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.BeginRunErr = nil
	a.FinishRunErr = nil
	a.ArchiveDocumentErr = nil
	a.BeginRunCalls = nil
	a.FinishRunCalls = nil
	a.ArchiveDocumentCalls = nil
}

// SearchChunksCall records one SearchChunks invocation.
type SearchChunksCall struct {
	Query  string
	TopK   int
	Filter store.SearchFilter
}

// Searcher implements store.Searcher with canned results.
type Searcher struct {
	mu sync.Mutex

	SearchChunksResult []store.SearchResult
	SearchChunksErr    error

	SearchChunksCalls []SearchChunksCall
}

var _ store.Searcher = (*Searcher)(nil)

func (s *Searcher) SearchChunks(_ context.Context, query string, topK int, filter store.SearchFilter) ([]store.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchChunksCalls = append(s.SearchChunksCalls, SearchChunksCall{Query: query, TopK: topK, Filter: filter})
	if s.SearchChunksErr != nil {
		return nil, s.SearchChunksErr
	}
	return s.SearchChunksResult, nil
}

// Reset clears recorded calls and configured results.
func (s *Searcher) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchChunksResult = nil
	s.SearchChunksErr = nil
	s.SearchChunksCalls = nil
}
