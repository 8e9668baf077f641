// Package immanuel provides an astrochart provider backed by an HTTP chart
// service wrapping the Immanuel astrology library and the Swiss Ephemeris.
//
// The service exposes a single chart endpoint under /v1 and holds the
// ephemeris files resident, so casting a chart is a cheap call. Charts come
// back with placements resolved against the configured house system.
//
// Example usage:
//
//	p, err := immanuel.New("http://localhost:8090")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	chart, err := p.Cast(ctx, astrochart.Subject{
//	    DateTime:  "1978-12-15 01:24:00",
//	    Latitude:  "38n58'56''",
//	    Longitude: "094w40'14''",
//	    Timezone:  "America/Chicago",
//	})
package immanuel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/astrochart"
)

// DefaultBaseURL is the default address of a locally running chart service.
const DefaultBaseURL = "http://localhost:8090"

// Ensure Provider implements the astrochart.Provider interface at compile time.
var _ astrochart.Provider = (*Provider)(nil)

// Provider implements astrochart.Provider against an HTTP chart service.
// Provider is safe for concurrent use.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTimeout sets a per-request timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for all requests. Useful for
// tests and for callers that need custom transport settings.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// New constructs a Provider for the chart service at baseURL. If baseURL is
// empty, DefaultBaseURL is used. A trailing slash is stripped automatically.
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	p := &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Cast implements astrochart.Provider.
func (p *Provider) Cast(ctx context.Context, sub astrochart.Subject) (*astrochart.Chart, error) {
	if sub.DateTime == "" {
		return nil, fmt.Errorf("immanuel chart: cast: subject date_time is empty")
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("immanuel chart: cast: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chart", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("immanuel chart: cast: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("immanuel chart: cast: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("immanuel chart: cast: unexpected status %d", resp.StatusCode)
	}

	var chart astrochart.Chart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("immanuel chart: cast: decode response: %w", err)
	}
	return &chart, nil
}
