// Package interpret fills the astrology blocks' interpretation slots by
// sending each block's system prompt and technique payload to an LLM.
//
// The step is optional and off by default. When it is disabled, or when a
// completion fails, blocks keep the empty interpretation slot the archive
// format carries anyway, so downstream consumers never see a difference in
// shape.
package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/NWeiss87/auricle/internal/astro"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/pkg/provider/llm"
	"github.com/NWeiss87/auricle/pkg/provider/llm/anyllm"
	"github.com/NWeiss87/auricle/pkg/provider/llm/openai"
)

// Interpreter turns an astrology block's payload into prose through an LLM.
// Safe for concurrent use when the underlying provider is.
type Interpreter struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// Option configures an [Interpreter].
type Option func(*Interpreter)

// WithTemperature sets the sampling temperature. Zero keeps the provider
// default.
func WithTemperature(temp float64) Option {
	return func(i *Interpreter) {
		i.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Zero keeps the provider default.
func WithMaxTokens(n int) Option {
	return func(i *Interpreter) {
		i.maxTokens = n
	}
}

// New builds an Interpreter over the given provider.
func New(provider llm.Provider, opts ...Option) (*Interpreter, error) {
	if provider == nil {
		return nil, errors.New("interpret: llm provider is required")
	}
	i := &Interpreter{provider: provider}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// ModelID reports the underlying model, for logs and run metrics.
func (i *Interpreter) ModelID() string {
	return i.provider.ModelID()
}

// Interpret sends b's system prompt and payload JSON to the provider and
// returns the reply, trimmed. The caller decides what a failure means; the
// batch driver logs it and leaves the block's interpretation slot empty.
func (i *Interpreter) Interpret(ctx context.Context, b astro.Block) (string, error) {
	payload, err := json.MarshalIndent(b.Results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("interpret: marshal %s payload: %w", b.Key, err)
	}

	resp, err := i.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: b.SystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: string(payload)},
		},
		Temperature: i.temperature,
		MaxTokens:   i.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("interpret: %s: %w", b.Key, err)
	}
	if resp == nil {
		return "", fmt.Errorf("interpret: %s: provider returned no response", b.Key)
	}

	return strings.TrimSpace(resp.Content), nil
}

// NewProvider builds the LLM client selected by cfg. An empty cfg.APIKey
// falls back to the provider's environment variable (OPENAI_API_KEY for
// openai; the backend's own variable for anyllm).
func NewProvider(cfg config.InterpretConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case config.InterpretOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return openai.New(key, cfg.Model)
	case config.InterpretAnyLLM:
		var opts []anyllmlib.Option
		if cfg.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
		}
		return anyllm.New(cfg.Backend, cfg.Model, opts...)
	default:
		return nil, fmt.Errorf("interpret: unknown provider %q", cfg.Provider)
	}
}
