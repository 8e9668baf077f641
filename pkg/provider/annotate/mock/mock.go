// Package mock provides a test double for the annotate.Provider interface.
//
// Use Provider in unit tests to feed controlled sentence annotations without
// a running CoreNLP server.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/annotate"
)

// Provider is a mock implementation of annotate.Provider.
// Zero values cause Annotate to return nil, nil. Set AnnotateErr to inject
// an error.
type Provider struct {
	mu sync.Mutex

	// AnnotateResult is returned by Annotate.
	AnnotateResult []annotate.Sentence

	// AnnotateErr, if non-nil, is returned by Annotate.
	AnnotateErr error

	// AnnotateCalls records every request passed to Annotate in order.
	AnnotateCalls []annotate.Request
}

// Annotate records the call and returns AnnotateResult, AnnotateErr.
func (p *Provider) Annotate(_ context.Context, req annotate.Request) ([]annotate.Sentence, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnnotateCalls = append(p.AnnotateCalls, req)
	return p.AnnotateResult, p.AnnotateErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnnotateCalls = nil
}

// Ensure Provider implements annotate.Provider at compile time.
var _ annotate.Provider = (*Provider)(nil)
