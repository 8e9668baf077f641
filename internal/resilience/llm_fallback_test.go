package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/llm"
	llmmock "github.com/NWeiss87/auricle/pkg/provider/llm/mock"
)

func TestLLMFallback_PrimaryAnswers(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "a grounded day"},
		Model:            "gpt-4o-mini",
	}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from the fallback"},
	}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("ollama", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "interpret"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "a grounded day" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(secondary.CompleteCalls) != 0 {
		t.Errorf("fallback was called %d times", len(secondary.CompleteCalls))
	}
	if got := fb.ModelID(); got != "gpt-4o-mini" {
		t.Errorf("ModelID = %q, want the primary's", got)
	}
}

func TestLLMFallback_FailsOver(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errBackend}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from the fallback"},
	}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("ollama", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "from the fallback" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 || len(secondary.CompleteCalls) != 1 {
		t.Errorf("calls = %d primary, %d fallback, want 1 and 1",
			len(primary.CompleteCalls), len(secondary.CompleteCalls))
	}
}

func TestLLMFallback_AllBackendsDown(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errBackend}
	secondary := &llmmock.Provider{CompleteErr: errBackend}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("ollama", secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_OpenBreakerStopsCallingPrimary(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errBackend}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "ok"},
	}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fb.AddFallback("ollama", secondary)

	for i := 0; i < 4; i++ {
		if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	// The primary's breaker opened after two failures; later calls skip it.
	if len(primary.CompleteCalls) != 2 {
		t.Errorf("primary called %d times, want 2", len(primary.CompleteCalls))
	}
	if len(secondary.CompleteCalls) != 4 {
		t.Errorf("fallback called %d times, want 4", len(secondary.CompleteCalls))
	}
}

func TestLLMFallback_SoloActsAsBreaker(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errBackend}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})

	for i := 0; i < 5; i++ {
		if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
			t.Fatalf("call %d: expected an error", i)
		}
	}

	// Two real calls trip the breaker; the remaining three fail fast.
	if len(primary.CompleteCalls) != 2 {
		t.Errorf("primary called %d times, want 2", len(primary.CompleteCalls))
	}
}
