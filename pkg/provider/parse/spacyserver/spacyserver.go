// Package spacyserver provides a parse provider backed by an HTTP service
// wrapping spaCy pipelines.
//
// The service keeps the requested pipeline (e.g. "en_core_web_sm") loaded
// and exposes a single POST /parse endpoint that returns the tokenised,
// dependency-annotated document as JSON in the [parse.Document] shape.
//
// Example usage:
//
//	p, err := spacyserver.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, err := p.Parse(ctx, "en_core_web_sm", chunkText)
package spacyserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/parse"
)

// DefaultBaseURL is the default address of a locally running parse service.
const DefaultBaseURL = "http://localhost:8080"

// Ensure Provider implements the parse.Provider interface at compile time.
var _ parse.Provider = (*Provider)(nil)

// Provider implements parse.Provider against a spaCy HTTP service.
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

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// New constructs a Provider for the parse service at baseURL. If baseURL is
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

// parseRequest is the JSON request body sent to the /parse endpoint.
type parseRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Parse implements parse.Provider.
func (p *Provider) Parse(ctx context.Context, model, text string) (*parse.Document, error) {
	body, err := json.Marshal(parseRequest{Model: model, Text: text})
	if err != nil {
		return nil, fmt.Errorf("spacy parse: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("spacy parse: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spacy parse: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spacy parse: unexpected status %d", resp.StatusCode)
	}

	var doc parse.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("spacy parse: decode response: %w", err)
	}
	return &doc, nil
}
