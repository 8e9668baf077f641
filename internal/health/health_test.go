package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NWeiss87/auricle/internal/health"
)

// probe mounts h on a mux, performs a GET against path and decodes the
// JSON answer.
func probe(t *testing.T, h *health.Handler, path string) (int, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return rec.Code, body
}

func ok(_ context.Context) error   { return nil }
func fail(_ context.Context) error { return errors.New("connection refused") }

func TestHealthz(t *testing.T) {
	t.Parallel()

	// Liveness ignores checker verdicts entirely.
	h := health.New(health.Checker{Name: "database", Check: fail})

	code, body := probe(t, h, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status code = %d, want %d", code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf(`status = %v, want "ok"`, body["status"])
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		checkers     []health.Checker
		wantCode     int
		wantStatus   string
		wantVerdicts map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all pass",
			checkers: []health.Checker{
				{Name: "database", Check: ok},
				{Name: "inference", Check: ok},
			},
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantVerdicts: map[string]string{"database": "ok", "inference": "ok"},
		},
		{
			name: "one fails",
			checkers: []health.Checker{
				{Name: "database", Check: fail},
				{Name: "inference", Check: ok},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantVerdicts: map[string]string{
				"database":  "fail: connection refused",
				"inference": "ok",
			},
		},
		{
			name: "all fail",
			checkers: []health.Checker{
				{Name: "database", Check: fail},
				{Name: "inference", Check: fail},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := probe(t, health.New(tt.checkers...), "/readyz")
			if code != tt.wantCode {
				t.Errorf("status code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %q", body["status"], tt.wantStatus)
			}
			if tt.wantVerdicts != nil {
				checks, _ := body["checks"].(map[string]any)
				for name, want := range tt.wantVerdicts {
					if got := checks[name]; got != want {
						t.Errorf("check %q = %v, want %q", name, got, want)
					}
				}
			}
		})
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Two checks that each wait for the other would deadlock under
	// sequential evaluation.
	gate := make(chan struct{}, 2)
	rendezvous := func(ctx context.Context) error {
		gate <- struct{}{}
		for len(gate) < 2 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		return nil
	}

	h := health.New(
		health.Checker{Name: "a", Check: rendezvous},
		health.Checker{Name: "b", Check: rendezvous},
	)

	code, _ := probe(t, h, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status code = %d, want %d", code, http.StatusOK)
	}
}

func TestReadyz_ChecksSeeCancellation(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
