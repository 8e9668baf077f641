// Package health serves liveness and readiness probes for the pipeline's
// observe endpoint.
//
// Liveness (/healthz) only says the process is up. Readiness (/readyz)
// additionally runs every registered Checker, typically one per external
// dependency the analysis run needs: the archive database, the model
// backends. A batch run is long; an orchestrator that restarts the process
// on a failed readiness probe would lose hours of work, so readiness is
// informational here and failures surface as 503 plus a per-check verdict
// rather than a bare status code.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds each individual readiness check.
const checkTimeout = 5 * time.Second

// Checker probes one dependency by name. Check returns nil when the
// dependency is usable and an error describing what is wrong otherwise; it
// must honor context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler answers liveness and readiness requests. The checker set is fixed
// at construction, so a Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New builds a Handler over the given checkers.
func New(checkers ...Checker) *Handler {
	h := &Handler{checkers: make([]Checker, len(checkers))}
	copy(h.checkers, checkers)
	return h
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// report is the wire form of a probe answer. Checks maps each checker name
// to "ok" or "fail: <reason>".
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz answers the liveness probe. A process that reaches this handler
// is alive, so the answer is always 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs all checkers concurrently, each under its own checkTimeout
// derived from the request context, and answers 200 when every check
// passed or 503 with the per-check verdicts when any failed.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	verdicts := make([]string, len(h.checkers))

	var wg sync.WaitGroup
	for i, c := range h.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			if err := c.Check(ctx); err != nil {
				verdicts[i] = "fail: " + err.Error()
			} else {
				verdicts[i] = "ok"
			}
		}()
	}
	wg.Wait()

	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK
	for i, c := range h.checkers {
		rep.Checks[c.Name] = verdicts[i]
		if verdicts[i] != "ok" {
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		}
	}
	writeReport(w, status, rep)
}

func writeReport(w http.ResponseWriter, status int, rep report) {
	body, err := json.Marshal(rep)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
