// Package annotate defines the Provider interface for sentence-level
// linguistic annotation backends such as Stanford CoreNLP.
//
// An annotation provider takes a chunk of journal text plus the calendar date
// it was spoken on (needed by temporal annotators to resolve phrases like
// "last Tuesday") and returns one [Sentence] per recognised sentence. Each
// sentence carries the few fields the analysis pipeline consumes in typed
// form and the backend's complete sentence object verbatim, so the output
// file can include everything the server produced.
//
// Implementations must be safe for concurrent use.
package annotate

import (
	"context"
	"encoding/json"
)

// Request carries one annotation call.
type Request struct {
	// Text is the chunk text to annotate.
	Text string

	// Date is the calendar datetime the text was spoken, used by temporal
	// annotators as the reference instant.
	Date string

	// Annotators is the comma-separated annotator list to run
	// (e.g. "tokenize,ssplit,pos,ner,sentiment").
	Annotators string

	// Language is the pipeline language code (e.g. "en").
	Language string

	// OutputFormat is the server output format. Only "json" is usable.
	OutputFormat string

	// TokensRegexRules is the filename of an additional NER rules file,
	// resolved relative to the server's working directory. Empty disables
	// the extra rules.
	TokensRegexRules string
}

// EntityMention is one named-entity mention within a sentence.
type EntityMention struct {
	Text          string `json:"text"`
	NER           string `json:"ner"`
	NormalizedNER string `json:"normalizedNER"`
}

// Sentence is one annotated sentence. Raw holds the backend's sentence
// object byte for byte; SentimentDistribution and EntityMentions are the
// typed views of the two fields the pipeline reads from it.
type Sentence struct {
	// SentimentDistribution is the probability per sentiment category, from
	// very negative (index 0) to very positive (index 4).
	SentimentDistribution []float64

	// EntityMentions lists the named-entity mentions found in the sentence.
	EntityMentions []EntityMention

	// Raw is the backend's complete sentence object.
	Raw json.RawMessage
}

// Provider is the abstraction over a sentence annotation backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Provider interface {
	// Annotate sends req to the backend and returns its sentences in
	// document order. An empty text yields an empty slice.
	Annotate(ctx context.Context, req Request) ([]Sentence, error)
}
