// Package transformers provides an inference provider backed by an HTTP
// model server hosting Hugging Face transformer and GLiNER models.
//
// The server is expected to expose one endpoint per task under /v1 and to
// keep models resident between calls, so per-request cost is dominated by
// inference rather than model loading. All endpoints accept and return JSON.
//
// Example usage:
//
//	p, err := transformers.New("http://localhost:8000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	scores, err := p.SequenceScores(ctx, "SamLowe/roberta-base-go_emotions", text)
package transformers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/inference"
)

// DefaultBaseURL is the default address of a locally running model server.
const DefaultBaseURL = "http://localhost:8000"

// Ensure Provider implements the inference.Provider interface at compile time.
var _ inference.Provider = (*Provider)(nil)

// Provider implements inference.Provider against an HTTP model server.
// Provider is safe for concurrent use.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTimeout sets a per-request timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default). Large models can
// take tens of seconds per chunk, so prefer generous values.
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

// New constructs a Provider for the model server at baseURL. If baseURL is
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

// textRequest is the JSON body for single-text tasks.
type textRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// labelledRequest is the JSON body for tasks that take candidate labels.
type labelledRequest struct {
	Model  string   `json:"model"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// qaRequest is the JSON body for extractive question answering.
type qaRequest struct {
	Model    string `json:"model"`
	Question string `json:"question"`
	Context  string `json:"context"`
}

// SequenceScores implements inference.Provider.
func (p *Provider) SequenceScores(ctx context.Context, model, text string) ([]inference.LabelScore, error) {
	var resp struct {
		Scores []inference.LabelScore `json:"scores"`
	}
	if err := p.post(ctx, "/v1/sequence-classification", textRequest{Model: model, Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: sequence scores: %w", err)
	}
	return resp.Scores, nil
}

// TokenTags implements inference.Provider.
func (p *Provider) TokenTags(ctx context.Context, model, text string) ([]inference.TokenTag, error) {
	var resp struct {
		Tokens []inference.TokenTag `json:"tokens"`
	}
	if err := p.post(ctx, "/v1/token-classification", textRequest{Model: model, Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: token tags: %w", err)
	}
	return resp.Tokens, nil
}

// Keyphrases implements inference.Provider.
func (p *Provider) Keyphrases(ctx context.Context, model, text string) ([]string, error) {
	var resp struct {
		Words []string `json:"words"`
	}
	if err := p.post(ctx, "/v1/keyphrases", textRequest{Model: model, Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: keyphrases: %w", err)
	}
	return resp.Words, nil
}

// ZeroShot implements inference.Provider. The result field of the server
// response is returned undecoded so the caller can handle shape differences
// between pipeline versions.
func (p *Provider) ZeroShot(ctx context.Context, model, text string, labels []string) (json.RawMessage, error) {
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := p.post(ctx, "/v1/zero-shot", labelledRequest{Model: model, Text: text, Labels: labels}, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: zero shot: %w", err)
	}
	return resp.Result, nil
}

// Entities implements inference.Provider.
func (p *Provider) Entities(ctx context.Context, model, text string, labels []string) ([]inference.Entity, error) {
	var resp struct {
		Entities []inference.Entity `json:"entities"`
	}
	if err := p.post(ctx, "/v1/entities", labelledRequest{Model: model, Text: text, Labels: labels}, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: entities: %w", err)
	}
	return resp.Entities, nil
}

// Answers implements inference.Provider.
func (p *Provider) Answers(ctx context.Context, model, question, contextText string) ([]string, error) {
	var resp struct {
		Answers []string `json:"answers"`
	}
	req := qaRequest{Model: model, Question: question, Context: contextText}
	if err := p.post(ctx, "/v1/question-answering", req, &resp); err != nil {
		return nil, fmt.Errorf("transformers inference: answers: %w", err)
	}
	return resp.Answers, nil
}

// post is the internal helper that sends a JSON POST request to the model
// server and decodes the JSON response into out.
func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
