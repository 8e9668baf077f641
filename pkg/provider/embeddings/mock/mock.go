// Package mock provides a test double for the embeddings.Provider
// interface.
//
// Use Provider in unit tests to return canned vectors without a live
// embedding backend and to assert which texts were embedded.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
// Zero values produce empty vectors of width Dims; set EmbedErr or
// EmbedBatchErr to inject failures.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by Embed. When nil, a zero vector of width
	// Dims is returned instead.
	EmbedResult []float32

	// EmbedErr, if non-nil, is returned by Embed.
	EmbedErr error

	// EmbedBatchResult is returned by EmbedBatch. When nil, one zero vector
	// of width Dims per input text is returned instead.
	EmbedBatchResult [][]float32

	// EmbedBatchErr, if non-nil, is returned by EmbedBatch.
	EmbedBatchErr error

	// Dims is returned by Dimensions and sizes the default vectors.
	Dims int

	// Model is returned by ModelID.
	Model string

	// EmbedCalls records the text of every Embed invocation in order.
	EmbedCalls []string

	// EmbedBatchCalls records the texts of every EmbedBatch invocation in
	// order.
	EmbedBatchCalls [][]string
}

// Embed records the call and returns EmbedResult, EmbedErr.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	if p.EmbedResult == nil {
		return make([]float32, p.Dims), nil
	}
	return p.EmbedResult, nil
}

// EmbedBatch records the call and returns EmbedBatchResult, EmbedBatchErr.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, cp)
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	if p.EmbedBatchResult != nil {
		return p.EmbedBatchResult, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, p.Dims)
	}
	return out, nil
}

// Dimensions returns Dims.
func (p *Provider) Dimensions() int {
	return p.Dims
}

// ModelID returns Model.
func (p *Provider) ModelID() string {
	return p.Model
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = nil
	p.EmbedBatchCalls = nil
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)
