// Package mock provides a test double for the inference.Provider interface.
//
// Use Provider in unit tests to feed controlled model results without a live
// model server and to verify which models and inputs the analysis pipeline
// requested. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/NWeiss87/auricle/pkg/provider/inference"
)

// Call records one invocation of a single-text method.
type Call struct {
	// Model is the model identifier passed to the method.
	Model string
	// Text is the input text passed to the method.
	Text string
}

// LabelledCall records one invocation of a method that takes candidate labels.
type LabelledCall struct {
	Model  string
	Text   string
	Labels []string
}

// AnswersCall records one invocation of Answers.
type AnswersCall struct {
	Model    string
	Question string
	Context  string
}

// Provider is a mock implementation of inference.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set the Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SequenceScoresResult is returned by SequenceScores.
	SequenceScoresResult []inference.LabelScore
	// SequenceScoresErr, if non-nil, is returned by SequenceScores.
	SequenceScoresErr error

	// TokenTagsResult is returned by TokenTags.
	TokenTagsResult []inference.TokenTag
	// TokenTagsErr, if non-nil, is returned by TokenTags.
	TokenTagsErr error

	// KeyphrasesResult is returned by Keyphrases.
	KeyphrasesResult []string
	// KeyphrasesErr, if non-nil, is returned by Keyphrases.
	KeyphrasesErr error

	// ZeroShotResult is returned by ZeroShot.
	ZeroShotResult json.RawMessage
	// ZeroShotErr, if non-nil, is returned by ZeroShot.
	ZeroShotErr error

	// EntitiesResult is returned by Entities. When EntitiesByText is non-nil
	// it takes precedence and is keyed by the text argument, which lets one
	// mock answer differently per question prompt.
	EntitiesResult []inference.Entity
	EntitiesByText map[string][]inference.Entity
	// EntitiesErr, if non-nil, is returned by Entities.
	EntitiesErr error

	// AnswersResult is returned by Answers. When AnswersByQuestion is
	// non-nil it takes precedence and is keyed by the question argument.
	AnswersResult     []string
	AnswersByQuestion map[string][]string
	// AnswersErr, if non-nil, is returned by Answers.
	AnswersErr error

	// --- Call records (read after test) ---

	SequenceScoresCalls []Call
	TokenTagsCalls      []Call
	KeyphrasesCalls     []Call
	ZeroShotCalls       []LabelledCall
	EntitiesCalls       []LabelledCall
	AnswersCalls        []AnswersCall
}

// SequenceScores records the call and returns SequenceScoresResult, SequenceScoresErr.
func (p *Provider) SequenceScores(_ context.Context, model, text string) ([]inference.LabelScore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SequenceScoresCalls = append(p.SequenceScoresCalls, Call{Model: model, Text: text})
	return p.SequenceScoresResult, p.SequenceScoresErr
}

// TokenTags records the call and returns TokenTagsResult, TokenTagsErr.
func (p *Provider) TokenTags(_ context.Context, model, text string) ([]inference.TokenTag, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TokenTagsCalls = append(p.TokenTagsCalls, Call{Model: model, Text: text})
	return p.TokenTagsResult, p.TokenTagsErr
}

// Keyphrases records the call and returns KeyphrasesResult, KeyphrasesErr.
func (p *Provider) Keyphrases(_ context.Context, model, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.KeyphrasesCalls = append(p.KeyphrasesCalls, Call{Model: model, Text: text})
	return p.KeyphrasesResult, p.KeyphrasesErr
}

// ZeroShot records the call and returns ZeroShotResult, ZeroShotErr.
func (p *Provider) ZeroShot(_ context.Context, model, text string, labels []string) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ZeroShotCalls = append(p.ZeroShotCalls, LabelledCall{Model: model, Text: text, Labels: labels})
	return p.ZeroShotResult, p.ZeroShotErr
}

// Entities records the call and returns the configured entities.
func (p *Provider) Entities(_ context.Context, model, text string, labels []string) ([]inference.Entity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EntitiesCalls = append(p.EntitiesCalls, LabelledCall{Model: model, Text: text, Labels: labels})
	if p.EntitiesByText != nil {
		return p.EntitiesByText[text], p.EntitiesErr
	}
	return p.EntitiesResult, p.EntitiesErr
}

// Answers records the call and returns the configured answers.
func (p *Provider) Answers(_ context.Context, model, question, contextText string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnswersCalls = append(p.AnswersCalls, AnswersCall{Model: model, Question: question, Context: contextText})
	if p.AnswersByQuestion != nil {
		return p.AnswersByQuestion[question], p.AnswersErr
	}
	return p.AnswersResult, p.AnswersErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SequenceScoresCalls = nil
	p.TokenTagsCalls = nil
	p.KeyphrasesCalls = nil
	p.ZeroShotCalls = nil
	p.EntitiesCalls = nil
	p.AnswersCalls = nil
}

// Ensure Provider implements inference.Provider at compile time.
var _ inference.Provider = (*Provider)(nil)
