// Package mock provides a test double for the astrochart.Provider interface.
//
// Use Provider in unit tests to feed fixed chart placements without an
// ephemeris backend and to verify which subjects were cast. All fields are
// safe to set before calling any method; mutating them during a concurrent
// call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
)

// Provider is a mock implementation of astrochart.Provider.
// Zero values for response fields cause Cast to return an empty chart and a
// nil error. Set CastErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CastResult is returned by Cast. When CastByDateTime is non-nil it
	// takes precedence and is keyed by the subject's DateTime, which lets
	// one mock serve a natal chart and a transit chart side by side.
	CastResult     *astrochart.Chart
	CastByDateTime map[string]*astrochart.Chart
	// CastErr, if non-nil, is returned by Cast.
	CastErr error

	// --- Call records (read after test) ---

	CastCalls []astrochart.Subject
}

// Cast records the call and returns the configured chart. A nil configured
// chart is returned as an empty chart so callers never see nil without an
// error.
func (p *Provider) Cast(_ context.Context, sub astrochart.Subject) (*astrochart.Chart, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CastCalls = append(p.CastCalls, sub)
	if p.CastErr != nil {
		return nil, p.CastErr
	}
	if p.CastByDateTime != nil {
		if chart, ok := p.CastByDateTime[sub.DateTime]; ok && chart != nil {
			return chart, nil
		}
	}
	if p.CastResult != nil {
		return p.CastResult, nil
	}
	return &astrochart.Chart{}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CastCalls = nil
}

// Ensure Provider implements astrochart.Provider at compile time.
var _ astrochart.Provider = (*Provider)(nil)
