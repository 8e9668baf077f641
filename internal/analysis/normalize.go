package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/NWeiss87/auricle/pkg/provider/inference"
)

// ErrUnknownDataFormat reports a zero-shot payload in neither of the two
// shapes the pipeline accepts. The run for the file is abandoned when this
// comes up, because a shape change means the model backend no longer matches
// expectations.
var ErrUnknownDataFormat = errors.New("analysis: unknown zero-shot data format")

// moderationModel is the one sequence classifier whose terse label codes are
// rewritten into readable names.
const moderationModel = "KoalaAI/Text-Moderation"

// moderationLabels maps the moderation model's label codes to readable
// names, following its model card.
var moderationLabels = map[string]string{
	"S":  "Sexual",
	"H":  "Hate",
	"V":  "Violence",
	"HR": "Harassment",
	"SH": "Self harm",
	"S3": "Sexual, minors",
	"H2": "Hate, threatening",
	"V2": "Graphic violence",
	"OK": "Okay",
}

func sortScoredDesc(scored []ScoredLabel) {
	slices.SortStableFunc(scored, func(a, b ScoredLabel) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
}

// NormalizeSequenceScores ranks a sequence classifier's label distribution
// by descending score. Scores render as fixed-point text. For the
// moderation model the label codes are rewritten after ranking; codes the
// model card does not define come out as "Unknown".
func NormalizeSequenceScores(model string, scores []inference.LabelScore) Result {
	scored := make([]ScoredLabel, 0, len(scores))
	for _, s := range scores {
		scored = append(scored, ScoredLabel{Label: s.Label, Score: s.Score})
	}
	sortScoredDesc(scored)

	if model == moderationModel {
		for i, s := range scored {
			name, ok := moderationLabels[s.Label]
			if !ok {
				name = "Unknown"
			}
			scored[i].Label = name
		}
	}

	return Result{Kind: KindScored, Scored: scored, StringScores: true}
}

// NormalizeTokenTags merges BIO-tagged tokens into entity strings and
// returns them as a deduplicated, sorted flat list. Subword fragments are
// joined with spaces, so any merged entity still containing a tokenizer
// marker ("#") is dropped, as is anything shorter than four characters.
func NormalizeTokenTags(tags []inference.TokenTag) Result {
	var entities []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		entities = append(entities, strings.Join(current, " "))
		current = nil
	}

	for _, t := range tags {
		switch {
		case strings.HasPrefix(t.Tag, "B-"):
			flush()
			current = []string{t.Token}
		case strings.HasPrefix(t.Tag, "I-"):
			if len(current) > 0 {
				current = append(current, t.Token)
			}
		default:
			flush()
		}
	}
	flush()

	seen := make(map[string]struct{}, len(entities))
	kept := make([]string, 0, len(entities))
	for _, entity := range entities {
		if strings.Contains(entity, "#") || utf8.RuneCountInString(entity) < 4 {
			continue
		}
		if _, ok := seen[entity]; ok {
			continue
		}
		seen[entity] = struct{}{}
		kept = append(kept, entity)
	}
	sort.Strings(kept)

	return Result{Kind: KindFlat, Flat: kept}
}

// NormalizeZeroShot ranks a zero-shot pipeline result by descending score.
// Two payload shapes are accepted: a list of {label, score} objects
// (optionally wrapped in one extra list level), and a single
// {sequence, labels, scores} object whose parallel slices are zipped,
// truncating to the shorter one. Anything else returns
// ErrUnknownDataFormat. Scores stay JSON numbers.
func NormalizeZeroShot(raw json.RawMessage) (Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Result{}, ErrUnknownDataFormat
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Result{}, ErrUnknownDataFormat
		}
		if len(items) == 1 {
			if inner := bytes.TrimSpace(items[0]); len(inner) > 0 && inner[0] == '[' {
				items = nil
				if err := json.Unmarshal(inner, &items); err != nil {
					return Result{}, ErrUnknownDataFormat
				}
			}
		}

		scored := make([]ScoredLabel, 0, len(items))
		for _, item := range items {
			var entry struct {
				Label *string  `json:"label"`
				Score *float64 `json:"score"`
			}
			if err := json.Unmarshal(item, &entry); err != nil || entry.Label == nil || entry.Score == nil {
				return Result{}, ErrUnknownDataFormat
			}
			scored = append(scored, ScoredLabel{Label: *entry.Label, Score: *entry.Score})
		}
		sortScoredDesc(scored)
		return Result{Kind: KindScored, Scored: scored}, nil

	case '{':
		var entry struct {
			Sequence *string   `json:"sequence"`
			Labels   []string  `json:"labels"`
			Scores   []float64 `json:"scores"`
		}
		if err := json.Unmarshal(trimmed, &entry); err != nil || entry.Sequence == nil || entry.Labels == nil || entry.Scores == nil {
			return Result{}, ErrUnknownDataFormat
		}

		n := min(len(entry.Labels), len(entry.Scores))
		scored := make([]ScoredLabel, 0, n)
		for i := range n {
			scored = append(scored, ScoredLabel{Label: entry.Labels[i], Score: entry.Scores[i]})
		}
		sortScoredDesc(scored)
		return Result{Kind: KindScored, Scored: scored}, nil
	}

	return Result{}, ErrUnknownDataFormat
}

// NormalizeKeyphrases strips, deduplicates and sorts the extracted phrases
// into a flat list.
func NormalizeKeyphrases(words []string) Result {
	seen := make(map[string]struct{}, len(words))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		kept = append(kept, w)
	}
	sort.Strings(kept)

	return Result{Kind: KindFlat, Flat: kept}
}

// AnswerEntry builds the record for one answered question: answer spans are
// deduplicated and sorted, empty spans dropped. The second return is false
// when no answers remain, in which case the question is left out of the
// results entirely.
func AnswerEntry(tag, question string, spans []string) (Answer, bool) {
	seen := make(map[string]struct{}, len(spans))
	answers := make([]string, 0, len(spans))
	for _, s := range spans {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		answers = append(answers, s)
	}
	sort.Strings(answers)

	if len(answers) == 0 {
		return Answer{}, false
	}
	return Answer{Tag: tag, Question: question, Answers: answers}, true
}
