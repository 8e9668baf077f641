// Package corenlp provides an annotation provider backed by a Stanford
// CoreNLP server.
//
// The client talks to the server's root endpoint: pipeline properties travel
// as a JSON object in the "properties" query parameter and the text to
// annotate is the raw POST body. The server must be started with the
// annotators the caller requests; rule files referenced via
// [annotate.Request.TokensRegexRules] are resolved in the server's working
// directory, not the client's.
//
// Example usage:
//
//	p, err := corenlp.New("http://localhost", 9000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sentences, err := p.Annotate(ctx, annotate.Request{
//	    Text:       chunkText,
//	    Date:       "2025-07-04T17:18:37",
//	    Annotators: "tokenize,ssplit,pos,ner,sentiment",
//	    Language:   "en",
//	    OutputFormat: "json",
//	})
package corenlp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/annotate"
)

// Ensure Provider implements the annotate.Provider interface at compile time.
var _ annotate.Provider = (*Provider)(nil)

// Provider implements annotate.Provider against a CoreNLP server.
// Provider is safe for concurrent use.
type Provider struct {
	serverURL  string
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

// New constructs a Provider for the CoreNLP server at address and port.
// address must include the scheme (e.g. "http://localhost").
func New(address string, port int, opts ...Option) (*Provider, error) {
	if address == "" {
		return nil, fmt.Errorf("corenlp: server address must not be empty")
	}
	if port <= 0 {
		return nil, fmt.Errorf("corenlp: server port must be positive, got %d", port)
	}

	p := &Provider{
		serverURL:  fmt.Sprintf("%s:%d", strings.TrimRight(address, "/"), port),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// sentenceEnvelope is the partial decode of one server sentence: just the
// fields the pipeline consumes in typed form.
type sentenceEnvelope struct {
	SentimentDistribution []float64 `json:"sentimentDistribution"`
	EntityMentions        []annotate.EntityMention `json:"entitymentions"`
}

// Annotate implements annotate.Provider. It POSTs req.Text to the server
// with the pipeline properties in the "properties" query parameter and
// decodes the sentence list from the JSON response.
func (p *Provider) Annotate(ctx context.Context, req annotate.Request) ([]annotate.Sentence, error) {
	props := map[string]string{
		"annotators":       req.Annotators,
		"pipelineLanguage": req.Language,
		"outputFormat":     req.OutputFormat,
		"date":             req.Date,
	}
	if req.TokensRegexRules != "" {
		props["ner.additional.tokensregex.rules"] = "./" + req.TokensRegexRules
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("corenlp: marshal properties: %w", err)
	}

	query := url.Values{}
	query.Set("properties", string(propsJSON))
	endpoint := p.serverURL + "/?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(req.Text))
	if err != nil {
		return nil, fmt.Errorf("corenlp: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("corenlp: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("corenlp: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Sentences []json.RawMessage `json:"sentences"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("corenlp: decode response: %w", err)
	}

	sentences := make([]annotate.Sentence, 0, len(body.Sentences))
	for i, raw := range body.Sentences {
		var env sentenceEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("corenlp: decode sentence %d: %w", i, err)
		}
		sentences = append(sentences, annotate.Sentence{
			SentimentDistribution: env.SentimentDistribution,
			EntityMentions:        env.EntityMentions,
			Raw:                   raw,
		})
	}
	return sentences, nil
}
