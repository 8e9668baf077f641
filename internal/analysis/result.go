// Package analysis turns raw model output into the per-chunk result records
// of a journal analysis and rolls those records up into the per-file index.
//
// Every configured model contributes one entry to a chunk's analysis map,
// keyed by model name and wrapped in a "model_results" envelope. The payload
// inside the envelope comes in a small number of shapes: ranked labels with
// scores, flat string lists, question-and-answer entries, and free-form
// reports that pass through untouched. Result captures which shape a model
// produced; the aggregation in this package keys off that shape rather than
// off model names.
package analysis

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind discriminates the payload shape of a Result.
type Kind string

const (
	// KindScored is a label list ranked by descending score.
	KindScored Kind = "scored"
	// KindFlat is a plain list of strings.
	KindFlat Kind = "flat"
	// KindQnA is a list of question-and-answer entries.
	KindQnA Kind = "qna"
	// KindReport is an opaque payload carried through untouched.
	KindReport Kind = "report"
)

// ScoredLabel is one ranked label with its probability.
type ScoredLabel struct {
	Label string
	Score float64
}

// Answer is one answered question. Answers holds the deduplicated answer
// spans; entries with no answers are dropped before they reach a Result.
type Answer struct {
	Tag      string
	Question string
	Answers  []string
}

// Result is one normalized model result in one of the Kind shapes. SubKey,
// when set, nests the payload one level deeper inside the model envelope;
// models that produce several result groups (span extraction plus question
// answering, say) use one Result per group.
type Result struct {
	Kind   Kind
	SubKey string

	// Scored carries the KindScored payload. StringScores selects the
	// fixed-point text rendering used for classifier probabilities; zero
	// keeps scores as JSON numbers.
	Scored       []ScoredLabel
	StringScores bool

	// Flat carries the KindFlat payload.
	Flat []string

	// QnA carries the KindQnA payload.
	QnA []Answer

	// Report carries the KindReport payload.
	Report any
}

// ModelOutput is everything one model produced for one chunk.
type ModelOutput struct {
	Model   string
	Results []Result
}

// scoredEntry is the serialized form of one ranked label.
type scoredEntry struct {
	Label string `json:"label"`
	Score any    `json:"score"`
}

// qnaEntry is the serialized form of one answered question.
type qnaEntry struct {
	Tag      string   `json:"tag"`
	Question string   `json:"question"`
	Answer   []string `json:"answer"`
}

// scoreString renders a probability the way the journal corpus stores
// classifier scores: fixed-point with twenty decimal places.
func scoreString(f float64) string {
	return strconv.FormatFloat(f, 'f', 20, 64)
}

// payload returns the serializable form of the result's content.
func (r Result) payload() any {
	switch r.Kind {
	case KindScored:
		entries := make([]scoredEntry, 0, len(r.Scored))
		for _, s := range r.Scored {
			var score any = s.Score
			if r.StringScores {
				score = scoreString(s.Score)
			}
			entries = append(entries, scoredEntry{Label: s.Label, Score: score})
		}
		return entries
	case KindFlat:
		if r.Flat == nil {
			return []string{}
		}
		return r.Flat
	case KindQnA:
		entries := make([]qnaEntry, 0, len(r.QnA))
		for _, a := range r.QnA {
			answers := a.Answers
			if answers == nil {
				answers = []string{}
			}
			entries = append(entries, qnaEntry{Tag: a.Tag, Question: a.Question, Answer: answers})
		}
		return entries
	case KindReport:
		return r.Report
	}
	return nil
}

// Value renders the model's envelope for the chunk analysis map:
// {"model_results": payload}. A single result without a SubKey becomes the
// payload directly; otherwise the payload is a nested map of SubKey to
// group payload in Results order, and results without a SubKey are skipped.
func (o ModelOutput) Value() *orderedmap.OrderedMap[string, any] {
	var inner any
	if len(o.Results) == 1 && o.Results[0].SubKey == "" {
		inner = o.Results[0].payload()
	} else {
		groups := orderedmap.New[string, any]()
		for _, r := range o.Results {
			if r.SubKey == "" {
				continue
			}
			groups.Set(r.SubKey, r.payload())
		}
		inner = groups
	}

	envelope := orderedmap.New[string, any]()
	envelope.Set("model_results", inner)
	return envelope
}
