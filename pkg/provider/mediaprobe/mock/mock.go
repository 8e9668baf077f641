// Package mock provides a test double for the mediaprobe.Provider interface.
//
// Use Provider in unit tests to return canned probe reports without the
// MediaInfo tool installed and to verify which files were probed. All fields
// are safe to set before calling any method; mutating them during a
// concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/mediaprobe"
)

// Provider is a mock implementation of mediaprobe.Provider.
// Zero values for response fields cause Probe to return an empty report and
// a nil error. Set ProbeErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ProbeResult is returned by Probe. When ProbeByPath is non-nil it
	// takes precedence and is keyed by the path argument.
	ProbeResult *mediaprobe.Report
	ProbeByPath map[string]*mediaprobe.Report
	// ProbeErr, if non-nil, is returned by Probe.
	ProbeErr error

	// --- Call records (read after test) ---

	ProbeCalls []string
}

// Probe records the call and returns the configured report. A nil configured
// report is returned as an empty report so callers never see nil without an
// error.
func (p *Provider) Probe(_ context.Context, path string) (*mediaprobe.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeCalls = append(p.ProbeCalls, path)
	if p.ProbeErr != nil {
		return nil, p.ProbeErr
	}
	if p.ProbeByPath != nil {
		if report, ok := p.ProbeByPath[path]; ok && report != nil {
			return report, nil
		}
	}
	if p.ProbeResult != nil {
		return p.ProbeResult, nil
	}
	return &mediaprobe.Report{}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProbeCalls = nil
}

// Ensure Provider implements mediaprobe.Provider at compile time.
var _ mediaprobe.Provider = (*Provider)(nil)
