package observe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/NWeiss87/auricle/internal/health"
)

// shutdownTimeout bounds the graceful drain of in-flight scrape requests.
const shutdownTimeout = 5 * time.Second

// Handler returns the ops server's route table: GET /metrics serving the
// Prometheus registry the OTel exporter bridge writes into, plus the
// /healthz and /readyz probes. All routes run through [Middleware].
func Handler(m *Metrics, checkers ...health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)
	return Middleware(m)(mux)
}

// Serve runs the ops HTTP server on addr until ctx is cancelled, then shuts
// it down gracefully. A clean shutdown returns nil. The server is gated by
// configuration; callers skip Serve entirely when no addr is set.
func Serve(ctx context.Context, addr string, m *Metrics, checkers ...health.Checker) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(m, checkers...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: listen on %s: %w", addr, err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
