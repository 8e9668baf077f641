// Package inference defines the Provider interface for the model-serving
// backend that hosts the transformer and GLiNER models used to analyse
// journal chunks.
//
// One provider instance fronts a whole model zoo: every method takes the
// model identifier to run, so a single backend process can serve sequence
// classifiers, token classifiers, zero-shot pipelines, keyphrase extractors,
// span extractors and extractive question answering side by side.
//
// Methods return the backend's results as close to raw as practical; shaping
// them into output records is the caller's concern. Implementations must be
// safe for concurrent use.
package inference

import (
	"context"
	"encoding/json"
)

// LabelScore is one class label with its confidence. For sequence
// classification the slice covers the model's full label set in the model's
// own label order, with scores summing to one.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TokenTag is one model token with its predicted tag. Tokens are reported in
// input order and keep the tokenizer's surface form, including subword
// markers and special tokens. Tags follow the BIO convention ("B-KEY",
// "I-KEY", "O").
type TokenTag struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
}

// Entity is one span extracted from the input text. Start and End are
// character offsets into the text as counted by the backend.
type Entity struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Provider is the abstraction over a model-serving backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Provider interface {
	// SequenceScores classifies text with the named sequence-classification
	// model and returns the full softmax distribution over its labels.
	SequenceScores(ctx context.Context, model, text string) ([]LabelScore, error)

	// TokenTags runs the named token-classification model over text and
	// returns one BIO tag per model token, aligned to the tokenizer output.
	TokenTags(ctx context.Context, model, text string) ([]TokenTag, error)

	// Keyphrases runs the named keyphrase-extraction model over text and
	// returns the aggregated phrase strings as produced by the backend,
	// unsorted and possibly containing duplicates or stray whitespace.
	Keyphrases(ctx context.Context, model, text string) ([]string, error)

	// ZeroShot classifies text against the caller-supplied candidate labels
	// using the named zero-shot pipeline and returns the backend's result
	// verbatim. The payload shape varies between pipeline versions, so
	// interpretation is left to the caller.
	ZeroShot(ctx context.Context, model, text string, labels []string) (json.RawMessage, error)

	// Entities extracts spans matching the given labels from text using the
	// named GLiNER-style model.
	Entities(ctx context.Context, model, text string, labels []string) ([]Entity, error)

	// Answers runs the named extractive question-answering model and returns
	// the answer spans it found for question within contextText. An empty
	// slice means the model found no answer.
	Answers(ctx context.Context, model, question, contextText string) ([]string, error)
}
