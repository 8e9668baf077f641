package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/internal/idiolect"
	"github.com/NWeiss87/auricle/internal/timeline"
	"github.com/NWeiss87/auricle/pkg/provider/annotate"
	"github.com/NWeiss87/auricle/pkg/provider/inference"
	"github.com/NWeiss87/auricle/pkg/provider/parse"
)

// Question is one row of the questions file: a short tag naming what the
// question probes and the question itself.
type Question struct {
	Tag      string
	Question string
}

// Input is one chunk as the runners see it.
type Input struct {
	// ChunkID is the chunk's 1-based position within its file.
	ChunkID int

	// Text is the chunk text.
	Text string

	// Start is the chunk's calendar start, used by annotators that resolve
	// temporal phrases against the moment of speech.
	Start time.Time
}

// Runner produces one model's normalized results for one chunk. Runners are
// built once per batch by the registry and must be safe for concurrent use.
type Runner interface {
	// Model returns the model name the results are keyed by.
	Model() string

	// Run analyzes one chunk. An empty result slice means the model
	// produced nothing for this chunk and its key is left out of the
	// chunk's analysis map.
	Run(ctx context.Context, in Input) ([]Result, error)
}

// glinerAnswerLabels are the span labels a GLiNER model answers questions
// with when prompted question-first.
var glinerAnswerLabels = []string{"match", "answer", "summary"}

// ─────────────────────────────────────────────────────────────────────────────
// Classifier runners
// ─────────────────────────────────────────────────────────────────────────────

type sequenceRunner struct {
	provider inference.Provider
	model    string
}

var _ Runner = (*sequenceRunner)(nil)

// NewSequenceRunner runs a sequence-classification model and keeps its full
// score distribution, highest first.
func NewSequenceRunner(p inference.Provider, model string) Runner {
	return &sequenceRunner{provider: p, model: model}
}

func (r *sequenceRunner) Model() string { return r.model }

func (r *sequenceRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	scores, err := r.provider.SequenceScores(ctx, r.model, in.Text)
	if err != nil {
		return nil, fmt.Errorf("sequence scores: %w", err)
	}
	return []Result{NormalizeSequenceScores(r.model, scores)}, nil
}

type tokenRunner struct {
	provider inference.Provider
	model    string
}

var _ Runner = (*tokenRunner)(nil)

// NewTokenRunner runs a token-classification model and folds its BIO tags
// into a deduplicated sorted word list.
func NewTokenRunner(p inference.Provider, model string) Runner {
	return &tokenRunner{provider: p, model: model}
}

func (r *tokenRunner) Model() string { return r.model }

func (r *tokenRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	tags, err := r.provider.TokenTags(ctx, r.model, in.Text)
	if err != nil {
		return nil, fmt.Errorf("token tags: %w", err)
	}
	return []Result{NormalizeTokenTags(tags)}, nil
}

type keyphraseRunner struct {
	provider inference.Provider
	model    string
}

var _ Runner = (*keyphraseRunner)(nil)

// NewKeyphraseRunner runs a keyphrase-extraction model.
func NewKeyphraseRunner(p inference.Provider, model string) Runner {
	return &keyphraseRunner{provider: p, model: model}
}

func (r *keyphraseRunner) Model() string { return r.model }

func (r *keyphraseRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	words, err := r.provider.Keyphrases(ctx, r.model, in.Text)
	if err != nil {
		return nil, fmt.Errorf("keyphrases: %w", err)
	}
	return []Result{NormalizeKeyphrases(words)}, nil
}

type zeroShotRunner struct {
	provider inference.Provider
	model    string
	labels   []string
}

var _ Runner = (*zeroShotRunner)(nil)

// NewZeroShotRunner runs a zero-shot classifier over the candidate labels.
// It covers every pipeline flavour whose payload NormalizeZeroShot accepts.
func NewZeroShotRunner(p inference.Provider, model string, labels []string) Runner {
	return &zeroShotRunner{provider: p, model: model, labels: labels}
}

func (r *zeroShotRunner) Model() string { return r.model }

func (r *zeroShotRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	raw, err := r.provider.ZeroShot(ctx, r.model, in.Text, r.labels)
	if err != nil {
		return nil, fmt.Errorf("zero-shot: %w", err)
	}
	result, err := NormalizeZeroShot(raw)
	if err != nil {
		return nil, err
	}
	return []Result{result}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Question answering
// ─────────────────────────────────────────────────────────────────────────────

type questionRunner struct {
	provider  inference.Provider
	model     string
	questions []Question
}

var _ Runner = (*questionRunner)(nil)

// NewQuestionRunner runs an extractive question-answering model over every
// configured question. Questions the model cannot answer are dropped; when
// nothing is answered the model contributes no results at all.
func NewQuestionRunner(p inference.Provider, model string, questions []Question) Runner {
	return &questionRunner{provider: p, model: model, questions: questions}
}

func (r *questionRunner) Model() string { return r.model }

func (r *questionRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	if len(r.questions) == 0 {
		return nil, nil
	}

	var entries []Answer
	for _, q := range r.questions {
		spans, err := r.provider.Answers(ctx, r.model, strings.TrimSpace(q.Question), in.Text)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", q.Tag, err)
		}
		if entry, ok := AnswerEntry(q.Tag, q.Question, spans); ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return []Result{{Kind: KindQnA, SubKey: "qna", QnA: entries}}, nil
}

// GlinerConfig selects which of a GLiNER model's two result groups run.
// A group with no labels or no questions is skipped.
type GlinerConfig struct {
	// CustomLabels are the span-extraction labels for the custom_labels
	// group.
	CustomLabels []string

	// Questions drive the qna group.
	Questions []Question
}

type glinerRunner struct {
	provider  inference.Provider
	model     string
	labels    []string
	questions []Question
}

var _ Runner = (*glinerRunner)(nil)

// NewGlinerRunner runs a GLiNER span-extraction model. The custom_labels
// group keeps the raw entity spans; the qna group prompts the model
// question-first over the chunk text and keeps the deduplicated span texts
// as answers.
func NewGlinerRunner(p inference.Provider, model string, cfg GlinerConfig) Runner {
	return &glinerRunner{provider: p, model: model, labels: cfg.CustomLabels, questions: cfg.Questions}
}

func (r *glinerRunner) Model() string { return r.model }

func (r *glinerRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	var results []Result

	if len(r.labels) > 0 {
		spans, err := r.provider.Entities(ctx, r.model, in.Text, r.labels)
		if err != nil {
			return nil, fmt.Errorf("entities: %w", err)
		}
		if spans == nil {
			spans = []inference.Entity{}
		}
		results = append(results, Result{Kind: KindReport, SubKey: "custom_labels", Report: spans})
	}

	if len(r.questions) > 0 {
		var entries []Answer
		for _, q := range r.questions {
			prompt := strings.TrimSpace(q.Question) + "\n" + in.Text
			spans, err := r.provider.Entities(ctx, r.model, prompt, glinerAnswerLabels)
			if err != nil {
				return nil, fmt.Errorf("question %q: %w", q.Tag, err)
			}
			texts := make([]string, 0, len(spans))
			for _, s := range spans {
				texts = append(texts, s.Text)
			}
			if entry, ok := AnswerEntry(q.Tag, q.Question, texts); ok {
				entries = append(entries, entry)
			}
		}
		if len(entries) > 0 {
			results = append(results, Result{Kind: KindQnA, SubKey: "qna", QnA: entries})
		}
	}

	return results, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Report runners
// ─────────────────────────────────────────────────────────────────────────────

type parseRunner struct {
	provider parse.Provider
	model    string
	lexicon  *idiolect.Lexicon
}

var _ Runner = (*parseRunner)(nil)

// NewParseRunner runs a dependency parser over the chunk and ranks the
// parsed document against the author's phrase lexicon.
func NewParseRunner(p parse.Provider, model string, lexicon *idiolect.Lexicon) Runner {
	return &parseRunner{provider: p, model: model, lexicon: lexicon}
}

func (r *parseRunner) Model() string { return r.model }

func (r *parseRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	doc, err := r.provider.Parse(ctx, r.model, in.Text)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return []Result{{Kind: KindReport, Report: idiolect.Rank(doc, r.lexicon)}}, nil
}

type annotateRunner struct {
	provider annotate.Provider
	model    string
	req      annotate.Request
}

var _ Runner = (*annotateRunner)(nil)

// NewAnnotateRunner runs a sentence annotation backend over the chunk. The
// request template carries the annotator settings; text and reference date
// are filled per chunk.
func NewAnnotateRunner(p annotate.Provider, model string, req annotate.Request) Runner {
	return &annotateRunner{provider: p, model: model, req: req}
}

func (r *annotateRunner) Model() string { return r.model }

func (r *annotateRunner) Run(ctx context.Context, in Input) ([]Result, error) {
	req := r.req
	req.Text = in.Text
	req.Date = timeline.Format(in.Start)

	sentences, err := r.provider.Annotate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	return []Result{AnnotateReport(sentences)}, nil
}
