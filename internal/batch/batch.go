// Package batch drives a full analysis run over the journal: it walks the
// transcript directories, chunks each transcript, runs every enabled model
// and astrology technique over each chunk, assembles the output document,
// and writes it to disk. Failures are contained at the smallest sensible
// scope: a model failure costs one model's entry on one chunk, a file
// failure costs one file, and only a cancelled context stops the run.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NWeiss87/auricle/internal/analysis"
	"github.com/NWeiss87/auricle/internal/astro"
	"github.com/NWeiss87/auricle/internal/audiometa"
	"github.com/NWeiss87/auricle/internal/chunk"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/internal/interpret"
	"github.com/NWeiss87/auricle/internal/observe"
	"github.com/NWeiss87/auricle/internal/store"
	"github.com/NWeiss87/auricle/internal/timeline"
)

// File outcome labels, shared by the run summary and the files metric.
const (
	statusOK      = "ok"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// Summary tallies one batch run.
type Summary struct {
	// RunID identifies the run in logs and in the archive.
	RunID string

	// Files is how many transcripts matched the walk.
	Files int

	Succeeded int
	Failed    int
	Skipped   int
}

// Deps are the collaborators a [Pipeline] drives. Every field except
// Runners may be nil, which disables the corresponding step; Runners may be
// empty, which produces documents whose chunks carry no model results.
type Deps struct {
	// Runners are the model runners, in the order they run per chunk.
	Runners []analysis.Runner

	// Astro produces the astrology blocks. Nil skips them.
	Astro astro.Provider

	// Interpreter fills the interpretation slot of each astrology block.
	// Nil leaves the slots empty.
	Interpreter *interpret.Interpreter

	// Collector probes matched audio files for metadata. Nil records audio
	// filenames without metadata.
	Collector *audiometa.Collector

	// Archiver persists each document into the analysis store. Nil
	// disables archiving.
	Archiver store.Archiver

	// Metrics receives run instrumentation. Nil uses the package default.
	Metrics *observe.Metrics
}

// Pipeline is one configured analysis pipeline. Construct with [New]; a
// Pipeline is safe to Run multiple times, each Run under its own run ID.
type Pipeline struct {
	cfg       *config.Config
	runners   []analysis.Runner
	builder   *chunk.Builder
	astro     astro.Provider
	interp    *interpret.Interpreter
	collector *audiometa.Collector
	archiver  store.Archiver
	metrics   *observe.Metrics
	clock     func() time.Time

	// modelTypes maps enabled model names to their configured type, for
	// metric attributes.
	modelTypes map[string]config.ModelType

	// qnaModel answers feed chunk tags and the file question index;
	// keyphraseModel output feeds chunk keyphrases.
	qnaModel       string
	keyphraseModel string

	parallel int
	dryRun   bool
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithParallel sets how many transcripts are processed concurrently.
// Values below one keep the default sequential processing.
func WithParallel(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.parallel = n
		}
	}
}

// WithDryRun makes Run perform the full analysis but write nothing: no
// output documents and no archive rows.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dry
	}
}

// WithClock overrides the time source used to stamp output filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.clock = now
		}
	}
}

// New builds a Pipeline over cfg and its collaborators.
func New(cfg *config.Config, deps Deps, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("batch: config is required")
	}

	p := &Pipeline{
		cfg:       cfg,
		runners:   deps.Runners,
		astro:     deps.Astro,
		interp:    deps.Interpreter,
		collector: deps.Collector,
		archiver:  deps.Archiver,
		metrics:   deps.Metrics,
		clock:     time.Now,
		parallel:  1,
		qnaModel:  cfg.Aggregator.QnAModel,
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	p.builder = chunk.NewBuilder(
		chunk.WithMaxElapsed(time.Duration(cfg.Chunking.MaxTimeDiffSeconds)*time.Second),
		chunk.WithMaxSegments(cfg.Chunking.MaxSegmentCount),
	)

	p.modelTypes = make(map[string]config.ModelType, len(cfg.Models))
	for _, m := range cfg.Models {
		if !m.UseModel {
			continue
		}
		p.modelTypes[m.ModelName] = m.ModelType
		if p.keyphraseModel == "" && m.ModelType == config.ModelKeyphrase {
			p.keyphraseModel = m.ModelName
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// runState is what one run's workers share.
type runState struct {
	id       string
	audio    []string
	archiver store.Archiver
}

// Run walks the transcript directories and processes every matching file.
// The returned error is non-nil only when the walk itself fails or the
// context is cancelled; per-file failures are counted in the [Summary] and
// logged, never propagated.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	ctx, span := observe.StartSpan(ctx, "batch.run")
	defer span.End()
	span.SetAttributes(observe.Attr("run_id", runID))
	log := observe.Logger(ctx).With("run_id", runID)

	transcripts, err := ListTranscripts(p.cfg.Paths.TranscriptDirs)
	if err != nil {
		return Summary{RunID: runID}, err
	}
	audio, err := ListAudio(p.cfg.Paths.AudioDirs)
	if err != nil {
		return Summary{RunID: runID}, err
	}
	log.Info("batch run starting",
		"transcripts", len(transcripts),
		"audio_files", len(audio),
		"models", len(p.runners),
		"parallel", p.parallel,
		"dry_run", p.dryRun)

	archiver := p.archiver
	if p.dryRun {
		archiver = nil
	}
	if archiver != nil {
		if err := archiver.BeginRun(ctx, runID); err != nil {
			log.Warn("archive unavailable, continuing without it", "err", err)
			archiver = nil
		}
	}

	rs := &runState{id: runID, audio: audio, archiver: archiver}
	summary := Summary{RunID: runID, Files: len(transcripts)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for _, path := range transcripts {
		g.Go(func() error {
			// Only cancellation stops the run; per-file failures are
			// tallied and swallowed.
			if err := gctx.Err(); err != nil {
				return err
			}
			status := p.processFile(gctx, rs, path)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case statusOK:
				summary.Succeeded++
			case statusFailed:
				summary.Failed++
			default:
				summary.Skipped++
			}
			return nil
		})
	}
	runErr := g.Wait()

	if archiver != nil {
		// Record the tally even when the run was interrupted.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		tally := store.RunTally{
			Succeeded: summary.Succeeded,
			Failed:    summary.Failed,
			Skipped:   summary.Skipped,
		}
		if err := archiver.FinishRun(fctx, runID, tally); err != nil {
			log.Warn("archive: finish run failed", "err", err)
		}
	}

	if runErr != nil {
		return summary, runErr
	}
	log.Info("batch run finished",
		"files", summary.Files,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return summary, nil
}

// processFile analyzes one transcript end to end and returns its outcome.
func (p *Pipeline) processFile(ctx context.Context, rs *runState, path string) (status string) {
	ctx, span := observe.StartSpan(ctx, "batch.file")
	defer span.End()
	defer func() { span.SetAttributes(observe.Attr("status", status)) }()

	name := filepath.Base(path)
	span.SetAttributes(observe.Attr("file", name))
	log := observe.Logger(ctx).With("run_id", rs.id, "file", name)

	rec, err := timeline.ParseRecordingName(name)
	if err != nil {
		log.Warn("skipping: not a journal recording name", "err", err)
		p.metrics.RecordFile(ctx, statusSkipped)
		return statusSkipped
	}

	tr, err := chunk.LoadTranscript(path)
	if err != nil {
		log.Error("transcript unreadable", "err", err)
		p.metrics.RecordFile(ctx, statusFailed)
		return statusFailed
	}

	chunks := p.builder.Build(rec, tr)
	p.metrics.ChunksBuilt.Add(ctx, int64(len(chunks)))
	log.Info("transcript chunked", "chunks", len(chunks))

	audioName := ""
	var audioMeta any
	if audioPath := MatchAudio(rs.audio, name); audioPath != "" {
		audioName = filepath.Base(audioPath)
		if p.collector != nil {
			block, err := p.collector.Collect(ctx, audioPath)
			if err != nil {
				log.Warn("audio probe failed, writing document without audio metadata",
					"audio", audioName, "err", err)
				p.metrics.RecordProviderError(ctx, "mediainfo", "probe")
			} else {
				audioMeta = block
			}
		}
	} else {
		log.Warn("no matching audio file")
	}

	analyses := make([]analysis.ChunkAnalysis, 0, len(chunks))
	for i := range chunks {
		analyses = append(analyses, p.analyzeChunk(ctx, log, &chunks[i]))
	}

	doc := analysis.Assemble(analysis.Assembly{
		Span:           rec,
		TranscriptName: name,
		AudioName:      audioName,
		AudioMetadata:  audioMeta,
		QnAModel:       p.qnaModel,
		Chunks:         analyses,
	})

	outName := analysis.OutputName(name, p.clock())
	outDir := p.cfg.Paths.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	outPath := filepath.Join(outDir, outName)

	if p.dryRun {
		log.Info("dry run: analysis complete, nothing written", "output", outPath)
		p.metrics.RecordFile(ctx, statusOK)
		return statusOK
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		log.Error("encode output document", "err", err)
		p.metrics.RecordFile(ctx, statusFailed)
		return statusFailed
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Error("create output dir", "dir", outDir, "err", err)
		p.metrics.RecordFile(ctx, statusFailed)
		return statusFailed
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Error("write output document", "path", outPath, "err", err)
		p.metrics.RecordFile(ctx, statusFailed)
		return statusFailed
	}
	p.metrics.DocumentsWritten.Add(ctx, 1)

	if rs.archiver != nil {
		root, _ := doc.Get("file_chunk_root")
		archDoc := storeDocument(rec, outName, audioName, chunks, root)
		if err := rs.archiver.ArchiveDocument(ctx, rs.id, archDoc); err != nil {
			log.Warn("archive failed, document was still written", "err", err)
			p.metrics.RecordProviderError(ctx, "store", "archive")
		}
	}

	log.Info("analysis written", "output", outPath, "chunks", len(chunks))
	p.metrics.RecordFile(ctx, statusOK)
	return statusOK
}

// analyzeChunk runs every model and astrology technique over one chunk,
// fills the chunk's tags and keyphrases from the results, and returns the
// chunk's complete analysis.
func (p *Pipeline) analyzeChunk(ctx context.Context, log *slog.Logger, c *chunk.Chunk) analysis.ChunkAnalysis {
	log = log.With("chunk", c.ID)
	in := analysis.Input{ChunkID: c.ID, Text: c.Text, Start: c.TimeData.Start}

	var outputs []analysis.ModelOutput
	for _, r := range p.runners {
		modelType := string(p.modelTypes[r.Model()])
		start := time.Now()
		results, err := r.Run(ctx, in)
		elapsed := time.Since(start)
		if err != nil {
			p.metrics.RecordModelRun(ctx, r.Model(), modelType, "error", elapsed)
			p.metrics.RecordProviderError(ctx, providerName(p.modelTypes[r.Model()]), modelType)
			log.Warn("model failed on chunk", "model", r.Model(), "err", err)
			continue
		}
		p.metrics.RecordModelRun(ctx, r.Model(), modelType, "ok", elapsed)
		if len(results) == 0 {
			continue
		}
		outputs = append(outputs, analysis.ModelOutput{Model: r.Model(), Results: results})
	}

	extra := p.astroBlocks(ctx, log, c.TimeData.Start)

	c.Tags = analysis.MergeQuestionTags(c.Tags, outputs, p.qnaModel)
	c.Keyphrases = analysis.MergeFlat(c.Keyphrases, outputs, p.keyphraseModel)

	return analysis.ChunkAnalysis{Chunk: *c, Outputs: outputs, Extra: extra}
}

// astroBlocks produces the astrology entries for a chunk starting at the
// given instant, interpretation slots filled when an interpreter is
// configured.
func (p *Pipeline) astroBlocks(ctx context.Context, log *slog.Logger, at time.Time) []analysis.ExtraBlock {
	if p.astro == nil {
		return nil
	}

	techniques := []struct {
		name string
		call func(context.Context, time.Time) (astro.Block, error)
	}{
		{"transits", p.astro.Transits},
		{"profections", p.astro.Profections},
		{"releasing", p.astro.Releasing},
	}

	var extra []analysis.ExtraBlock
	for _, t := range techniques {
		b, err := t.call(ctx, at)
		if err != nil {
			if errors.Is(err, astro.ErrNoReleasingTables) {
				log.Debug("releasing periods not configured, skipping")
				continue
			}
			log.Warn("astrology block failed", "technique", t.name, "err", err)
			p.metrics.RecordProviderError(ctx, "astro", t.name)
			continue
		}
		p.interpretBlock(ctx, log, &b)
		extra = append(extra, analysis.ExtraBlock{Key: b.Key, Value: b.Value()})
	}
	return extra
}

// interpretBlock fills b's interpretation slot. A failure leaves the slot
// empty; the block is still written.
func (p *Pipeline) interpretBlock(ctx context.Context, log *slog.Logger, b *astro.Block) {
	if p.interp == nil {
		return
	}
	start := time.Now()
	text, err := p.interp.Interpret(ctx, *b)
	elapsed := time.Since(start)
	if err != nil {
		p.metrics.RecordModelRun(ctx, p.interp.ModelID(), "interpretation", "error", elapsed)
		p.metrics.RecordProviderError(ctx, "llm", "interpretation")
		log.Warn("interpretation failed, leaving slot empty", "block", b.Key, "err", err)
		return
	}
	p.metrics.RecordModelRun(ctx, p.interp.ModelID(), "interpretation", "ok", elapsed)
	b.Interpretation = text
}

// storeDocument shapes one analyzed file for the archive.
func storeDocument(rec timeline.Span, outName, audioName string, chunks []chunk.Chunk, root any) store.Document {
	secs, _ := strconv.Atoi(rec.Seconds)
	doc := store.Document{
		TranscriptName:  rec.Name,
		AudioName:       audioName,
		OutputName:      outName,
		RecordedAt:      rec.Start,
		DurationSeconds: secs,
		ChunkRoot:       root,
		Chunks:          make([]store.Chunk, 0, len(chunks)),
	}
	for _, c := range chunks {
		doc.Chunks = append(doc.Chunks, store.Chunk{
			ID:         c.ID,
			Text:       c.Text,
			Start:      c.TimeData.Start,
			End:        c.TimeData.End,
			Tags:       c.Tags,
			Keyphrases: c.Keyphrases,
		})
	}
	return doc
}

// providerName maps a model type to the provider label used on error
// metrics.
func providerName(t config.ModelType) string {
	switch t {
	case config.ModelSpacy:
		return "spacy"
	case config.ModelCoreNLP:
		return "corenlp"
	default:
		return "transformers"
	}
}
