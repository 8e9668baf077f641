package resilience

import (
	"context"

	"github.com/NWeiss87/auricle/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with failover across completion
// backends. Each backend sits behind its own circuit breaker, so a dead
// primary stops costing a timeout per interpretation once its breaker
// opens.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend. With no fallbacks registered it degrades to a circuit breaker
// around the primary.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another completion backend, tried after all earlier
// ones.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends req to the first healthy backend and returns its response.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// ModelID reports the primary backend's model identifier. Documents are
// stamped with the model that usually answers; failover is an availability
// detail, not a different pipeline.
func (f *LLMFallback) ModelID() string {
	return f.group.entries[0].value.ModelID()
}
