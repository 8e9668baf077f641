// Package mock provides a configurable astro provider for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/NWeiss87/auricle/internal/astro"
)

// Provider implements astro.Provider with canned results.
type Provider struct {
	mu sync.Mutex

	TransitsResult    astro.Block
	TransitsErr       error
	ProfectionsResult astro.Block
	ProfectionsErr    error
	ReleasingResult   astro.Block
	ReleasingErr      error

	TransitsCalls    []time.Time
	ProfectionsCalls []time.Time
	ReleasingCalls   []time.Time
}

var _ astro.Provider = (*Provider)(nil)

func (p *Provider) Transits(_ context.Context, t time.Time) (astro.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TransitsCalls = append(p.TransitsCalls, t)
	if p.TransitsErr != nil {
		return astro.Block{}, p.TransitsErr
	}
	return p.TransitsResult, nil
}

func (p *Provider) Profections(_ context.Context, t time.Time) (astro.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProfectionsCalls = append(p.ProfectionsCalls, t)
	if p.ProfectionsErr != nil {
		return astro.Block{}, p.ProfectionsErr
	}
	return p.ProfectionsResult, nil
}

func (p *Provider) Releasing(_ context.Context, t time.Time) (astro.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReleasingCalls = append(p.ReleasingCalls, t)
	if p.ReleasingErr != nil {
		return astro.Block{}, p.ReleasingErr
	}
	return p.ReleasingResult, nil
}

// Reset clears recorded calls and configured results.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TransitsResult = astro.Block{}
	p.TransitsErr = nil
	p.ProfectionsResult = astro.Block{}
	p.ProfectionsErr = nil
	p.ReleasingResult = astro.Block{}
	p.ReleasingErr = nil
	p.TransitsCalls = nil
	p.ProfectionsCalls = nil
	p.ReleasingCalls = nil
}
