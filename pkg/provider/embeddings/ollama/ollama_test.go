package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/embeddings/ollama"
)

// mockEmbedServer starts a test HTTP server that handles /api/embed
// requests. It verifies the request method, model and input texts, and
// answers with the given vectors.
func mockEmbedServer(t *testing.T, wantModel string, wantInput []string, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: got %q, want /api/embed", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: got %q, want POST", r.Method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Model != wantModel {
			t.Errorf("model: got %q, want %q", req.Model, wantModel)
		}
		if wantInput != nil {
			if len(req.Input) != len(wantInput) {
				t.Errorf("input length: got %d, want %d", len(req.Input), len(wantInput))
			} else {
				for i := range wantInput {
					if req.Input[i] != wantInput[i] {
						t.Errorf("input[%d]: got %q, want %q", i, req.Input[i], wantInput[i])
					}
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"model": req.Model, "embeddings": vectors}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestNew_RequiresModel(t *testing.T) {
	t.Parallel()

	if _, err := ollama.New("", ""); err == nil {
		t.Fatal("New with empty model: want error, got nil")
	}
}

func TestEmbed(t *testing.T) {
	srv := mockEmbedServer(t, "nomic-embed-text", []string{"hello journal"}, [][]float32{{0.1, 0.2, 0.3}})
	defer srv.Close()

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vec, err := p.Embed(context.Background(), "hello journal")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.1, 0.2, 0.3}
	if len(vec) != len(want) {
		t.Fatalf("vector length: got %d, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}

func TestEmbedBatch_OrderPreserved(t *testing.T) {
	texts := []string{"first chunk", "second chunk", "third chunk"}
	vectors := [][]float32{{1}, {2}, {3}}
	srv := mockEmbedServer(t, "nomic-embed-text", texts, vectors)
	defer srv.Close()

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vecs, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i := range vectors {
		if vecs[i][0] != vectors[i][0] {
			t.Errorf("vecs[%d] = %v, want %v", i, vecs[i], vectors[i])
		}
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	t.Parallel()

	// No server behind this address: an empty batch must not issue a request.
	p, err := ollama.New("http://127.0.0.1:1", "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vecs)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := mockEmbedServer(t, "nomic-embed-text", nil, [][]float32{{1}})
	defer srv.Close()

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("EmbedBatch with short response: want error, got nil")
	}
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := ollama.New(srv.URL, "missing-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Embed against failing server: want error, got nil")
	}
}

func TestEmbed_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Embed with unparseable body: want error, got nil")
	}
}

func TestEmbed_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := ollama.New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := p.Embed(ctx, "text"); err == nil {
		t.Fatal("Embed with expired context: want error, got nil")
	}
}

func TestDimensions_KnownModels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  int
	}{
		{"nomic-embed-text", 768},
		{"nomic-embed-text:latest", 768},
		{"mxbai-embed-large", 1024},
		{"all-minilm", 384},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			// Unreachable address: known models must not be probed.
			p, err := ollama.New("http://127.0.0.1:1", tt.model)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := p.Dimensions(); got != tt.want {
				t.Errorf("Dimensions() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDimensions_Option(t *testing.T) {
	t.Parallel()

	p, err := ollama.New("http://127.0.0.1:1", "custom-model", ollama.WithDimensions(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.Dimensions(); got != 256 {
		t.Errorf("Dimensions() = %d, want 256", got)
	}
}

func TestDimensions_ProbesUnknownModelOnce(t *testing.T) {
	probes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		probes++
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0, 0, 0, 0}}})
	}))
	defer srv.Close()

	p, err := ollama.New(srv.URL, "custom-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got := p.Dimensions(); got != 4 {
			t.Errorf("Dimensions() call %d = %d, want 4", i, got)
		}
	}
	if probes != 1 {
		t.Errorf("probe requests = %d, want 1", probes)
	}
}

func TestModelID(t *testing.T) {
	t.Parallel()

	p, err := ollama.New("", "mxbai-embed-large")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.ModelID(); got != "mxbai-embed-large" {
		t.Errorf("ModelID() = %q, want %q", got, "mxbai-embed-large")
	}
}
