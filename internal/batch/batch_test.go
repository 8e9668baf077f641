package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/NWeiss87/auricle/internal/analysis"
	"github.com/NWeiss87/auricle/internal/astro"
	astromock "github.com/NWeiss87/auricle/internal/astro/mock"
	"github.com/NWeiss87/auricle/internal/audiometa"
	"github.com/NWeiss87/auricle/internal/batch"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/internal/interpret"
	"github.com/NWeiss87/auricle/internal/observe"
	storemock "github.com/NWeiss87/auricle/internal/store/mock"
	infmock "github.com/NWeiss87/auricle/pkg/provider/inference/mock"
	"github.com/NWeiss87/auricle/pkg/provider/llm"
	llmmock "github.com/NWeiss87/auricle/pkg/provider/llm/mock"
	probemock "github.com/NWeiss87/auricle/pkg/provider/mediaprobe/mock"
)

const (
	recordingName = "2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - morning walk - large-v2 - SR.json"
	audioFileName = "2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - morning walk.mp3"
	brokenName    = "2025-07-05 - 10-00-00 - 2025-07-05 - 10-00-30 - 30 - broken take.json"
)

// transcriptJSON is a minimal two-segment transcript; both segments land in
// one chunk under the default bounds.
const transcriptJSON = `{
    "language": "en",
    "segments": [
        {
            "start": 0.0, "end": 4.2,
            "text": " I repotted the tomato seedlings today.",
            "words": [
                {"start": 0.0, "end": 0.5, "word": " I", "probability": 0.99},
                {"start": 0.5, "end": 1.4, "word": " repotted", "probability": 0.97},
                {"start": 1.4, "end": 1.7, "word": " the", "probability": 0.99},
                {"start": 1.7, "end": 2.4, "word": " tomato", "probability": 0.98},
                {"start": 2.4, "end": 3.4, "word": " seedlings", "probability": 0.96},
                {"start": 3.4, "end": 4.2, "word": " today.", "probability": 0.99}
            ]
        },
        {
            "start": 6.0, "end": 9.5,
            "text": " The raised beds need compost before the weekend.",
            "words": [
                {"start": 6.0, "end": 6.3, "word": " The", "probability": 0.99},
                {"start": 6.3, "end": 6.9, "word": " raised", "probability": 0.98},
                {"start": 6.9, "end": 7.4, "word": " beds", "probability": 0.98},
                {"start": 7.4, "end": 7.9, "word": " need", "probability": 0.99},
                {"start": 7.9, "end": 8.6, "word": " compost", "probability": 0.97},
                {"start": 8.6, "end": 9.0, "word": " before", "probability": 0.99},
                {"start": 9.0, "end": 9.2, "word": " the", "probability": 0.99},
                {"start": 9.2, "end": 9.5, "word": " weekend.", "probability": 0.98}
            ]
        }
    ]
}`

var fixedNow = time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC)

type fixture struct {
	transcriptDir string
	audioDir      string
	outDir        string
	cfg           *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		transcriptDir: t.TempDir(),
		audioDir:      t.TempDir(),
		outDir:        t.TempDir(),
	}
	f.cfg = &config.Config{
		Paths: config.PathsConfig{
			TranscriptDirs: []string{f.transcriptDir},
			AudioDirs:      []string{f.audioDir},
			OutputDir:      f.outDir,
		},
		Aggregator: config.AggregatorConfig{QnAModel: "qna-model"},
		Models: []config.ModelConfig{
			{ModelName: "kbir", ModelType: config.ModelKeyphrase, UseModel: true, BaseURL: "http://unused"},
			{ModelName: "qna-model", ModelType: config.ModelQuestionAnswering, UseModel: true, BaseURL: "http://unused"},
		},
	}
	return f
}

func newTestMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testRunners(inf *infmock.Provider) []analysis.Runner {
	return []analysis.Runner{
		analysis.NewKeyphraseRunner(inf, "kbir"),
		analysis.NewQuestionRunner(inf, "qna-model", []analysis.Question{
			{Tag: "gardening", Question: "Does the speaker mention gardening?"},
		}),
	}
}

func testAstro() *astromock.Provider {
	return &astromock.Provider{
		TransitsResult: astro.Block{
			Key:          astro.TransitsKey,
			SystemPrompt: "Interpret the transits.",
			ResultsKey:   "transits_json",
			Results:      map[string]any{"aspects": []any{}},
		},
		ProfectionsResult: astro.Block{
			Key:          astro.ProfectionsKey,
			SystemPrompt: "Interpret the profections.",
			ResultsKey:   "profections_json",
			Results:      map[string]any{"annual": map[string]any{"sign": "Leo"}},
		},
		ReleasingResult: astro.Block{
			Key:          astro.ReleasingKey,
			SystemPrompt: "Interpret the releasing periods.",
			ResultsKey:   "zr_json",
			Results:      map[string]any{"fortune": []any{}},
		},
	}
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return doc
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)
	writeFile(t, f.transcriptDir, "not a recording.json", "{}")
	writeFile(t, f.transcriptDir, brokenName, "{not json")
	writeFile(t, f.audioDir, audioFileName, "fake audio bytes")

	inf := &infmock.Provider{
		KeyphrasesResult: []string{"tomato seedlings", "raised beds"},
		AnswersResult:    []string{"repotted the tomato seedlings"},
	}
	lp := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "A grounded day."},
		Model:            "gpt-4o-mini",
	}
	interp, err := interpret.New(lp)
	if err != nil {
		t.Fatalf("interpret.New: %v", err)
	}
	arch := &storemock.Archiver{}

	p, err := batch.New(f.cfg, batch.Deps{
		Runners:     testRunners(inf),
		Astro:       testAstro(),
		Interpreter: interp,
		Collector:   audiometa.NewCollector(&probemock.Provider{}),
		Archiver:    arch,
		Metrics:     newTestMetrics(t),
	}, batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RunID == "" {
		t.Error("empty run ID")
	}
	if sum.Files != 3 || sum.Succeeded != 1 || sum.Failed != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v, want 3 files / 1 ok / 1 failed / 1 skipped", sum)
	}

	outPath := filepath.Join(f.outDir, analysis.OutputName(recordingName, fixedNow))
	doc := readDoc(t, outPath)

	if got := doc["original_trasncript_filename"]; got != recordingName {
		t.Errorf("original_trasncript_filename = %v", got)
	}
	if _, ok := doc["audio_file_metadata"]; !ok {
		t.Error("audio_file_metadata missing")
	}
	allTags, _ := doc["file_all_chunk_tags"].([]any)
	if len(allTags) != 1 || allTags[0] != "gardening" {
		t.Errorf("file_all_chunk_tags = %v", allTags)
	}

	chunks, _ := doc["chunks"].([]any)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c0, _ := chunks[0].(map[string]any)
	if got, _ := c0["source_audio_file_name"].(string); got != audioFileName {
		t.Errorf("source_audio_file_name = %q, want %q", got, audioFileName)
	}
	phrases, _ := c0["chunk_keyphrases"].([]any)
	if len(phrases) != 2 || phrases[0] != "raised beds" || phrases[1] != "tomato seedlings" {
		t.Errorf("chunk_keyphrases = %v", phrases)
	}

	ca, _ := c0["chunk_analysis"].(map[string]any)
	for _, key := range []string{"kbir", "qna-model", astro.TransitsKey, astro.ProfectionsKey, astro.ReleasingKey} {
		if _, ok := ca[key]; !ok {
			t.Errorf("chunk_analysis missing %q", key)
		}
	}
	transits, _ := ca[astro.TransitsKey].(map[string]any)
	mr, _ := transits["model_results"].(map[string]any)
	if got := mr["interpretation"]; got != "A grounded day." {
		t.Errorf("interpretation = %v", got)
	}

	if len(arch.BeginRunCalls) != 1 || arch.BeginRunCalls[0] != sum.RunID {
		t.Errorf("BeginRunCalls = %v, want one call with %q", arch.BeginRunCalls, sum.RunID)
	}
	if len(arch.ArchiveDocumentCalls) != 1 {
		t.Fatalf("got %d ArchiveDocument calls, want 1", len(arch.ArchiveDocumentCalls))
	}
	archived := arch.ArchiveDocumentCalls[0]
	if archived.RunID != sum.RunID {
		t.Errorf("archived run = %q, want %q", archived.RunID, sum.RunID)
	}
	if archived.Doc.TranscriptName != recordingName {
		t.Errorf("archived transcript = %q", archived.Doc.TranscriptName)
	}
	if archived.Doc.DurationSeconds != 29 {
		t.Errorf("archived duration = %d, want 29", archived.Doc.DurationSeconds)
	}
	if len(archived.Doc.Chunks) != 1 || archived.Doc.Chunks[0].Text == "" {
		t.Fatalf("archived chunks = %+v", archived.Doc.Chunks)
	}
	if got := archived.Doc.Chunks[0].Tags; len(got) != 1 || got[0] != "gardening" {
		t.Errorf("archived tags = %v", got)
	}
	if archived.Doc.ChunkRoot == nil {
		t.Error("archived chunk root is nil")
	}
	if len(arch.FinishRunCalls) != 1 {
		t.Fatalf("got %d FinishRun calls, want 1", len(arch.FinishRunCalls))
	}
	tally := arch.FinishRunCalls[0].Tally
	if tally.Succeeded != 1 || tally.Failed != 1 || tally.Skipped != 1 {
		t.Errorf("tally = %+v", tally)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	inf := &infmock.Provider{KeyphrasesResult: []string{"x"}}
	arch := &storemock.Archiver{}
	p, err := batch.New(f.cfg, batch.Deps{
		Runners:  testRunners(inf),
		Archiver: arch,
		Metrics:  newTestMetrics(t),
	}, batch.WithDryRun(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Errorf("summary = %+v, want 1 succeeded", sum)
	}

	entries, err := os.ReadDir(f.outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
	if len(arch.BeginRunCalls)+len(arch.ArchiveDocumentCalls)+len(arch.FinishRunCalls) != 0 {
		t.Error("archiver was called during a dry run")
	}
}

func TestRun_ArchiveUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	inf := &infmock.Provider{}
	arch := &storemock.Archiver{BeginRunErr: errors.New("connection refused")}
	p, err := batch.New(f.cfg, batch.Deps{
		Runners:  testRunners(inf),
		Archiver: arch,
		Metrics:  newTestMetrics(t),
	}, batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Errorf("summary = %+v, want 1 succeeded", sum)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, analysis.OutputName(recordingName, fixedNow))); err != nil {
		t.Errorf("output document not written: %v", err)
	}
	if len(arch.ArchiveDocumentCalls) != 0 || len(arch.FinishRunCalls) != 0 {
		t.Error("archiver used after BeginRun failed")
	}
}

func TestRun_ModelFailuresAreContained(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	inf := &infmock.Provider{
		KeyphrasesErr: errors.New("model server down"),
		AnswersErr:    errors.New("model server down"),
	}
	p, err := batch.New(f.cfg, batch.Deps{
		Runners: testRunners(inf),
		Metrics: newTestMetrics(t),
	}, batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want the file to succeed", sum)
	}

	doc := readDoc(t, filepath.Join(f.outDir, analysis.OutputName(recordingName, fixedNow)))
	chunks, _ := doc["chunks"].([]any)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c0, _ := chunks[0].(map[string]any)
	ca, _ := c0["chunk_analysis"].(map[string]any)
	if len(ca) != 0 {
		t.Errorf("chunk_analysis = %v, want empty", ca)
	}
	tags, _ := c0["chunk_tags"].([]any)
	if len(tags) != 0 {
		t.Errorf("chunk_tags = %v, want empty", tags)
	}
	if _, ok := c0["source_audio_file_name"]; ok {
		t.Error("audio fields present without a matched audio file")
	}
	if got, _ := c0["source_json_file_name"].(string); got != recordingName {
		t.Errorf("source_json_file_name = %q", got)
	}
}

func TestRun_InterpretationFailureLeavesSlotEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	lp := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
	interp, err := interpret.New(lp)
	if err != nil {
		t.Fatalf("interpret.New: %v", err)
	}
	p, err := batch.New(f.cfg, batch.Deps{
		Astro:       testAstro(),
		Interpreter: interp,
		Metrics:     newTestMetrics(t),
	}, batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc := readDoc(t, filepath.Join(f.outDir, analysis.OutputName(recordingName, fixedNow)))
	chunks, _ := doc["chunks"].([]any)
	c0, _ := chunks[0].(map[string]any)
	ca, _ := c0["chunk_analysis"].(map[string]any)
	transits, _ := ca[astro.TransitsKey].(map[string]any)
	mr, _ := transits["model_results"].(map[string]any)
	if got := mr["interpretation"]; got != "" {
		t.Errorf("interpretation = %v, want empty", got)
	}
}

func TestRun_NoReleasingTables(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	am := testAstro()
	am.ReleasingErr = astro.ErrNoReleasingTables
	p, err := batch.New(f.cfg, batch.Deps{
		Astro:   am,
		Metrics: newTestMetrics(t),
	}, batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc := readDoc(t, filepath.Join(f.outDir, analysis.OutputName(recordingName, fixedNow)))
	chunks, _ := doc["chunks"].([]any)
	c0, _ := chunks[0].(map[string]any)
	ca, _ := c0["chunk_analysis"].(map[string]any)
	if _, ok := ca[astro.TransitsKey]; !ok {
		t.Error("transits block missing")
	}
	if _, ok := ca[astro.ReleasingKey]; ok {
		t.Error("releasing block present without period tables")
	}
}

func TestRun_Parallel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	names := []string{
		"2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - one.json",
		"2025-07-05 - 08-00-00 - 2025-07-05 - 08-00-29 - 29 - two.json",
		"2025-07-06 - 21-15-10 - 2025-07-06 - 21-15-39 - 29 - three.json",
	}
	for _, name := range names {
		writeFile(t, f.transcriptDir, name, transcriptJSON)
	}

	inf := &infmock.Provider{KeyphrasesResult: []string{"weekend"}}
	arch := &storemock.Archiver{}
	p, err := batch.New(f.cfg, batch.Deps{
		Runners:  testRunners(inf),
		Archiver: arch,
		Metrics:  newTestMetrics(t),
	}, batch.WithParallel(3), batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 3 || sum.Failed != 0 || sum.Skipped != 0 {
		t.Fatalf("summary = %+v, want 3 succeeded", sum)
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(f.outDir, analysis.OutputName(name, fixedNow))); err != nil {
			t.Errorf("output for %s not written: %v", name, err)
		}
	}
	if len(arch.ArchiveDocumentCalls) != 3 {
		t.Errorf("got %d ArchiveDocument calls, want 3", len(arch.ArchiveDocumentCalls))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	p, err := batch.New(f.cfg, batch.Deps{Metrics: newTestMetrics(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sum.Succeeded != 0 {
		t.Errorf("summary = %+v, want nothing processed", sum)
	}
}

func TestRun_OutputNextToTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cfg.Paths.OutputDir = ""
	writeFile(t, f.transcriptDir, recordingName, transcriptJSON)

	p, err := batch.New(f.cfg, batch.Deps{Metrics: newTestMetrics(t)},
		batch.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.transcriptDir, analysis.OutputName(recordingName, fixedNow))); err != nil {
		t.Errorf("output not written next to transcript: %v", err)
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := batch.New(nil, batch.Deps{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
