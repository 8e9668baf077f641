// Package mock provides a test double for the parse.Provider interface.
//
// Use Provider in unit tests to feed hand-built dependency trees without a
// running parse service.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/parse"
)

// ParseCall records a single invocation of Parse.
type ParseCall struct {
	Model string
	Text  string
}

// Provider is a mock implementation of parse.Provider.
// Zero values cause Parse to return an empty document and nil error. Set
// ParseErr to inject an error.
type Provider struct {
	mu sync.Mutex

	// ParseResult is returned by Parse. When nil, an empty document is
	// returned instead so callers never see a nil pointer.
	ParseResult *parse.Document

	// ParseErr, if non-nil, is returned by Parse.
	ParseErr error

	// ParseCalls records every invocation of Parse in order.
	ParseCalls []ParseCall
}

// Parse records the call and returns ParseResult, ParseErr.
func (p *Provider) Parse(_ context.Context, model, text string) (*parse.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ParseCalls = append(p.ParseCalls, ParseCall{Model: model, Text: text})
	if p.ParseErr != nil {
		return nil, p.ParseErr
	}
	if p.ParseResult == nil {
		return &parse.Document{}, nil
	}
	return p.ParseResult, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ParseCalls = nil
}

// Ensure Provider implements parse.Provider at compile time.
var _ parse.Provider = (*Provider)(nil)
