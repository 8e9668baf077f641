package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NWeiss87/auricle/internal/astro"
	"github.com/NWeiss87/auricle/internal/audiometa"
	"github.com/NWeiss87/auricle/internal/batch"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/internal/health"
	"github.com/NWeiss87/auricle/internal/interpret"
	"github.com/NWeiss87/auricle/internal/observe"
	"github.com/NWeiss87/auricle/internal/resilience"
	"github.com/NWeiss87/auricle/internal/store/postgres"
	"github.com/NWeiss87/auricle/pkg/provider/astrochart/immanuel"
	"github.com/NWeiss87/auricle/pkg/provider/embeddings"
	"github.com/NWeiss87/auricle/pkg/provider/embeddings/ollama"
	"github.com/NWeiss87/auricle/pkg/provider/embeddings/openai"
	"github.com/NWeiss87/auricle/pkg/provider/llm"
	"github.com/NWeiss87/auricle/pkg/provider/mediaprobe/mediainfo"
)

// chartTimeout bounds a single request to the chart calculation service.
const chartTimeout = 30 * time.Second

func newAnalyzeCmd() *cobra.Command {
	var (
		configPath string
		parallel   int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis pipeline over the configured journal directories",
		Long: `Analyze scans the configured transcript directories, runs every journal
transcript through chunking, the NLP model sequence, and astrological
enrichment, and writes one analysis document per recording.

A file that fails leaves the rest of the run untouched; the summary at the
end counts succeeded, failed, and skipped files. The command exits non-zero
when any file failed.`,
		Example: `  auricle analyze
  auricle analyze --config analysis.yaml --parallel 4
  auricle analyze --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), configPath, parallel, dryRun)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the analysis config file")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "number of transcripts processed concurrently")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "analyze without writing documents or archiving")
	return cmd
}

func runAnalyze(ctx context.Context, configPath string, parallel int, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	slog.SetDefault(newLogger(cfg.Log))

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "auricle",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	assets, err := batch.LoadAssets(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	runners, err := batch.BuildRunners(cfg, batch.NewRegistry(assets))
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	deps, checkers, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	deps.Runners = runners

	pipeline, err := batch.New(cfg, deps,
		batch.WithParallel(parallel),
		batch.WithDryRun(dryRun),
	)
	if err != nil {
		return err
	}

	// The ops server lives for the duration of the run and is torn down
	// before the store closes.
	if cfg.Metrics.Addr != "" {
		srvCtx, stopSrv := context.WithCancel(ctx)
		srvDone := make(chan error, 1)
		go func() {
			srvDone <- observe.Serve(srvCtx, cfg.Metrics.Addr, deps.Metrics, checkers...)
		}()
		defer func() {
			stopSrv()
			if err := <-srvDone; err != nil {
				slog.Warn("ops server stopped", "err", err)
			}
		}()
	}

	sum, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d files, %d succeeded, %d failed, %d skipped\n",
		sum.RunID, sum.Files, sum.Succeeded, sum.Failed, sum.Skipped)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, sum.Files)
	}
	return nil
}

// ── Dependency wiring ─────────────────────────────────────────────────────────

// buildDeps assembles the optional collaborators the pipeline runs with,
// gated by configuration. The returned cleanup releases whatever was opened
// and is safe to call even on a partial build.
func buildDeps(ctx context.Context, cfg *config.Config) (batch.Deps, []health.Checker, func(), error) {
	deps := batch.Deps{Metrics: observe.DefaultMetrics()}
	var checkers []health.Checker
	cleanup := func() {}

	if cfg.Astrology.Enabled {
		svc, err := newAstroService(cfg.Astrology)
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("%w: %w", errConfig, err)
		}
		deps.Astro = svc
	}

	if cfg.Interpret.Enabled {
		provider, err := newInterpretProvider(cfg.Interpret)
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("%w: %w", errConfig, err)
		}
		interp, err := interpret.New(provider)
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("%w: %w", errConfig, err)
		}
		deps.Interpreter = interp
	}

	if len(cfg.Paths.AudioDirs) > 0 {
		prober, err := mediainfo.New()
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("%w: %w", errConfig, err)
		}
		deps.Collector = audiometa.NewCollector(prober)
	}

	if cfg.Store.DSN != "" {
		embedder, err := newEmbedder(cfg.Store)
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("%w: %w", errConfig, err)
		}
		st, err := postgres.New(ctx, cfg.Store.DSN, embedder, cfg.Store.EmbeddingDimensions)
		if err != nil {
			return deps, nil, cleanup, fmt.Errorf("open archive store: %w", err)
		}
		deps.Archiver = st
		checkers = append(checkers, health.Checker{Name: "database", Check: st.Ping})
		cleanup = st.Close
	}

	return deps, checkers, cleanup, nil
}

// newAstroService wires the chart service client and the optional releasing
// period tables into an astrology service.
func newAstroService(cfg config.AstrologyConfig) (*astro.Service, error) {
	charts, err := immanuel.New(cfg.ChartServiceURL, immanuel.WithTimeout(chartTimeout))
	if err != nil {
		return nil, err
	}
	acfg := astro.Config{
		NatalDate: cfg.Natal.Date,
		NatalTime: cfg.Natal.Time,
		Latitude:  cfg.Natal.Lat,
		Longitude: cfg.Natal.Lon,
		Timezone:  cfg.Natal.Timezone,
		Orb:       cfg.Orb,
	}
	if cfg.ZRFortunePeriods != "" {
		table, err := astro.LoadPeriodTable(cfg.ZRFortunePeriods)
		if err != nil {
			return nil, err
		}
		acfg.FortunePeriods = table
	}
	if cfg.ZRSpiritPeriods != "" {
		table, err := astro.LoadPeriodTable(cfg.ZRSpiritPeriods)
		if err != nil {
			return nil, err
		}
		acfg.SpiritPeriods = table
	}
	return astro.NewService(charts, acfg)
}

// newInterpretProvider builds the completion backend for interpretation.
// The primary always runs behind a circuit breaker so a dead LLM stops
// costing a timeout per chunk; a configured fallback backend takes over
// while the primary is down.
func newInterpretProvider(cfg config.InterpretConfig) (llm.Provider, error) {
	primary, err := interpret.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	fb := resilience.NewLLMFallback(primary, string(cfg.Provider), resilience.FallbackConfig{})
	if f := cfg.Fallback; f != nil {
		second, err := interpret.NewProvider(config.InterpretConfig{
			Provider: f.Provider,
			Backend:  f.Backend,
			Model:    f.Model,
			APIKey:   f.APIKey,
		})
		if err != nil {
			return nil, err
		}
		fb.AddFallback(string(f.Provider), second)
	}
	return fb, nil
}

// newEmbedder builds the embeddings client for the archive store.
func newEmbedder(cfg config.StoreConfig) (embeddings.Provider, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbedOllama:
		return ollama.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
	default:
		key := cfg.EmbeddingAPIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return openai.New(key, cfg.EmbeddingModel)
	}
}
