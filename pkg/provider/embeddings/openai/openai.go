// Package openai provides an embeddings provider backed by the OpenAI
// embeddings API, or any service exposing the same surface via WithBaseURL.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/NWeiss87/auricle/pkg/provider/embeddings"
)

// DefaultModel is used when no model is configured.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// Provider implements embeddings.Provider using the OpenAI API.
// Provider is safe for concurrent use.
type Provider struct {
	client oai.Client
	model  string
}

// Option is a functional option for Provider.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at an OpenAI-compatible server instead of
// the hosted API.
func WithBaseURL(url string) Option {
	return func(reqOpts *[]option.RequestOption) {
		if url != "" {
			*reqOpts = append(*reqOpts, option.WithBaseURL(url))
		}
	}
}

// WithTimeout sets a per-request timeout. A zero or negative value means no
// timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(reqOpts *[]option.RequestOption) {
		if d > 0 {
			*reqOpts = append(*reqOpts, option.WithHTTPClient(&http.Client{Timeout: d}))
		}
	}
}

// New constructs a Provider authenticated by apiKey. An empty model selects
// [DefaultModel].
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: embed: empty response")
	}
	return narrow(resp.Data[0].Embedding), nil
}

// EmbedBatch implements embeddings.Provider. The API reports each vector
// with the index of its input, so results are placed rather than appended.
// Empty input returns (nil, nil) without a request.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: embed batch: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: embed batch: vector index %d out of range", e.Index)
		}
		out[e.Index] = narrow(e.Embedding)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider. Widths follow the published
// model cards; unknown models are assumed to be 1536-wide like the small
// third-generation model.
func (p *Provider) Dimensions() int {
	switch {
	case strings.Contains(p.model, "text-embedding-3-large"):
		return 3072
	case strings.Contains(p.model, "text-embedding-3-small"),
		strings.Contains(p.model, "text-embedding-ada-002"):
		return 1536
	}
	return 1536
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}

// narrow converts the API's float64 vector to the float32 form the archive
// stores.
func narrow(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// Ensure Provider implements the embeddings.Provider interface at compile time.
var _ embeddings.Provider = (*Provider)(nil)
