package transformers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/inference/transformers"
)

// newTaskServer starts a test HTTP server that serves a single model-server
// task endpoint. It verifies the request path and method, hands the raw body
// to check for per-test assertions, and writes resp as the JSON response.
func newTaskServer(t *testing.T, wantPath string, resp any, check func(t *testing.T, body []byte)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path: got %q, want %q", r.URL.Path, wantPath)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: got %q, want POST", r.Method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if check != nil {
			check(t, body)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

// TestSequenceScores verifies that SequenceScores posts the model and text to
// the sequence-classification endpoint and decodes the full score
// distribution in server order.
func TestSequenceScores(t *testing.T) {
	resp := map[string]any{"scores": []map[string]any{
		{"label": "joy", "score": 0.91},
		{"label": "neutral", "score": 0.06},
		{"label": "sadness", "score": 0.03},
	}}
	srv := newTaskServer(t, "/v1/sequence-classification", resp, func(t *testing.T, body []byte) {
		var req struct {
			Model string `json:"model"`
			Text  string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "SamLowe/roberta-base-go_emotions" {
			t.Errorf("model: got %q, want %q", req.Model, "SamLowe/roberta-base-go_emotions")
		}
		if req.Text != "The walk by the lake left me calm." {
			t.Errorf("text: got %q", req.Text)
		}
	})
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scores, err := p.SequenceScores(context.Background(), "SamLowe/roberta-base-go_emotions", "The walk by the lake left me calm.")
	if err != nil {
		t.Fatalf("SequenceScores: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("scores: got %d, want 3", len(scores))
	}
	if scores[0].Label != "joy" || scores[0].Score != 0.91 {
		t.Errorf("scores[0]: got %+v, want {joy 0.91}", scores[0])
	}
	if scores[2].Label != "sadness" {
		t.Errorf("scores[2].Label: got %q, want %q", scores[2].Label, "sadness")
	}
}

// TestTokenTags verifies that TokenTags posts to the token-classification
// endpoint and preserves the backend's token order and BIO tags.
func TestTokenTags(t *testing.T) {
	resp := map[string]any{"tokens": []map[string]any{
		{"token": "▁morning", "tag": "B-KEY"},
		{"token": "▁walk", "tag": "I-KEY"},
		{"token": "▁was", "tag": "O"},
	}}
	srv := newTaskServer(t, "/v1/token-classification", resp, func(t *testing.T, body []byte) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "ml6team/keyphrase-extraction-kbir-inspec" {
			t.Errorf("model: got %q", req.Model)
		}
	})
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tags, err := p.TokenTags(context.Background(), "ml6team/keyphrase-extraction-kbir-inspec", "morning walk was")
	if err != nil {
		t.Fatalf("TokenTags: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("tokens: got %d, want 3", len(tags))
	}
	if tags[0].Token != "▁morning" || tags[0].Tag != "B-KEY" {
		t.Errorf("tags[0]: got %+v", tags[0])
	}
	if tags[2].Tag != "O" {
		t.Errorf("tags[2].Tag: got %q, want O", tags[2].Tag)
	}
}

// TestKeyphrases verifies that Keyphrases returns the backend's phrase list
// verbatim, duplicates and all.
func TestKeyphrases(t *testing.T) {
	resp := map[string]any{"words": []string{"morning walk", "lake", "morning walk"}}
	srv := newTaskServer(t, "/v1/keyphrases", resp, nil)
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	words, err := p.Keyphrases(context.Background(), "ml6team/keyphrase-extraction-kbir-inspec", "text")
	if err != nil {
		t.Fatalf("Keyphrases: %v", err)
	}
	want := []string{"morning walk", "lake", "morning walk"}
	if len(words) != len(want) {
		t.Fatalf("words: got %d, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("words[%d]: got %q, want %q", i, words[i], want[i])
		}
	}
}

// TestZeroShot verifies that ZeroShot posts the candidate labels and returns
// the result field undecoded.
func TestZeroShot(t *testing.T) {
	resp := map[string]any{"result": map[string]any{
		"labels": []string{"gratitude", "worry"},
		"scores": []float64{0.8, 0.2},
	}}
	srv := newTaskServer(t, "/v1/zero-shot", resp, func(t *testing.T, body []byte) {
		var req struct {
			Model  string   `json:"model"`
			Text   string   `json:"text"`
			Labels []string `json:"labels"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if len(req.Labels) != 2 || req.Labels[0] != "gratitude" || req.Labels[1] != "worry" {
			t.Errorf("labels: got %v", req.Labels)
		}
	})
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw, err := p.ZeroShot(context.Background(), "facebook/bart-large-mnli", "text", []string{"gratitude", "worry"})
	if err != nil {
		t.Fatalf("ZeroShot: %v", err)
	}

	var decoded struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal raw result: %v", err)
	}
	if len(decoded.Labels) != 2 || decoded.Labels[0] != "gratitude" {
		t.Errorf("labels: got %v", decoded.Labels)
	}
	if decoded.Scores[0] != 0.8 {
		t.Errorf("scores[0]: got %v, want 0.8", decoded.Scores[0])
	}
}

// TestEntities verifies that Entities posts the span labels and decodes the
// extracted spans with their character offsets.
func TestEntities(t *testing.T) {
	resp := map[string]any{"entities": []map[string]any{
		{"start": 10, "end": 15, "text": "Milan", "label": "city", "score": 0.97},
	}}
	srv := newTaskServer(t, "/v1/entities", resp, func(t *testing.T, body []byte) {
		var req struct {
			Labels []string `json:"labels"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if len(req.Labels) != 2 || req.Labels[0] != "city" {
			t.Errorf("labels: got %v", req.Labels)
		}
	})
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ents, err := p.Entities(context.Background(), "urchade/gliner_multi-v2.1", "flights to Milan", []string{"city", "person"})
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("entities: got %d, want 1", len(ents))
	}
	e := ents[0]
	if e.Start != 10 || e.End != 15 || e.Text != "Milan" || e.Label != "city" {
		t.Errorf("entity: got %+v", e)
	}
}

// TestAnswers verifies that Answers posts question and context separately and
// decodes the answer spans. An empty answer list must come back as empty, not
// as an error.
func TestAnswers(t *testing.T) {
	resp := map[string]any{"answers": []string{"by the lake"}}
	srv := newTaskServer(t, "/v1/question-answering", resp, func(t *testing.T, body []byte) {
		var req struct {
			Model    string `json:"model"`
			Question string `json:"question"`
			Context  string `json:"context"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Question != "Where did I walk?" {
			t.Errorf("question: got %q", req.Question)
		}
		if req.Context != "I walked by the lake this morning." {
			t.Errorf("context: got %q", req.Context)
		}
	})
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answers, err := p.Answers(context.Background(), "deepset/roberta-base-squad2", "Where did I walk?", "I walked by the lake this morning.")
	if err != nil {
		t.Fatalf("Answers: %v", err)
	}
	if len(answers) != 1 || answers[0] != "by the lake" {
		t.Errorf("answers: got %v, want [by the lake]", answers)
	}
}

// TestAnswers_NoAnswer verifies that a model finding no answer yields an empty
// slice rather than an error.
func TestAnswers_NoAnswer(t *testing.T) {
	srv := newTaskServer(t, "/v1/question-answering", map[string]any{"answers": []string{}}, nil)
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	answers, err := p.Answers(context.Background(), "deepset/roberta-base-squad2", "Who called?", "Nothing happened today.")
	if err != nil {
		t.Fatalf("Answers: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("answers: got %v, want empty", answers)
	}
}

// TestNew_TrailingSlash verifies that a trailing slash on the base URL does
// not double up in request paths.
func TestNew_TrailingSlash(t *testing.T) {
	srv := newTaskServer(t, "/v1/keyphrases", map[string]any{"words": []string{}}, nil)
	defer srv.Close()

	p, err := transformers.New(srv.URL + "/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Keyphrases(context.Background(), "m", "text"); err != nil {
		t.Fatalf("Keyphrases: %v", err)
	}
}

// TestSequenceScores_ServerDown verifies that an unreachable server returns an
// error rather than blocking indefinitely.
func TestSequenceScores_ServerDown(t *testing.T) {
	p, err := transformers.New("http://127.0.0.1:19999",
		transformers.WithTimeout(500*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.SequenceScores(context.Background(), "m", "text")
	if err == nil {
		t.Fatal("expected error for unreachable server, got nil")
	}
}

// TestSequenceScores_BadStatus verifies that a non-200 HTTP status is treated
// as an error.
func TestSequenceScores_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.SequenceScores(context.Background(), "m", "text")
	if err == nil {
		t.Fatal("expected error for 503 response, got nil")
	}
}

// TestSequenceScores_MalformedJSON verifies that an unparseable response body
// is treated as an error.
func TestSequenceScores_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>traceback</html>"))
	}))
	defer srv.Close()

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.SequenceScores(context.Background(), "m", "text")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

// TestSequenceScores_ContextCancelled verifies that a request is abandoned
// promptly when its context deadline passes.
func TestSequenceScores_ContextCancelled(t *testing.T) {
	// stopCh signals the handler to return so httptest.Server.Close() doesn't
	// block waiting for a hung goroutine.
	stopCh := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-stopCh:
		}
	}))
	// Defers run LIFO: close(stopCh) fires first, unblocking the handler so that
	// the subsequent srv.Close() can drain connections without hanging.
	defer srv.Close()
	defer close(stopCh)

	p, err := transformers.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = p.SequenceScores(ctx, "m", "text")
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
}
