package analysis

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"

	"github.com/NWeiss87/auricle/pkg/provider/annotate"
)

// sentimentNames are the sentiment buckets in the order CoreNLP lays out a
// sentence's sentimentDistribution.
var sentimentNames = [...]string{
	"very_negative",
	"negative",
	"neutral",
	"positive",
	"very_positive",
}

// pronounMentions are entity texts dropped from the NER results. CoreNLP's
// coreference-flavoured NER tags bare pronouns as entities, which only adds
// noise to a journal index.
var pronounMentions = []string{"he", "she", "they", "them", "him", "her", "his", "hers"}

// SentimentScore is one sentiment bucket with its probability averaged
// across a chunk's sentences.
type SentimentScore struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

// NERMention is one named entity kept in the report. NormalizedNER is empty
// when CoreNLP reported no normalized form.
type NERMention struct {
	Text          string `json:"text"`
	NER           string `json:"ner"`
	NormalizedNER string `json:"normalizedNER"`
}

// annotateReport is the report payload of the CoreNLP entry in a chunk's
// analysis map, in output key order.
type annotateReport struct {
	Sentiment  []SentimentScore  `json:"sentiment"`
	NERDetails []NERMention      `json:"ner_details"`
	NERNames   []string          `json:"ner_names"`
	NERTypes   []string          `json:"ner_types"`
	Sentences  []json.RawMessage `json:"sentences"`
}

// AnnotateReport shapes a CoreNLP annotation into its report payload:
// sentiment averaged across sentences and ranked by score, entity mentions
// filtered and deduplicated, and the raw sentence annotations carried
// through verbatim. A chunk with no sentences produces empty lists rather
// than an error.
func AnnotateReport(sentences []annotate.Sentence) Result {
	report := annotateReport{
		Sentiment:  []SentimentScore{},
		NERDetails: []NERMention{},
		NERNames:   []string{},
		NERTypes:   []string{},
		Sentences:  make([]json.RawMessage, 0, len(sentences)),
	}

	// Average the per-sentence sentiment distributions bucket by bucket.
	cumulative := make([]float64, len(sentimentNames))
	counted := 0
	for _, s := range sentences {
		if len(s.SentimentDistribution) == 0 {
			continue
		}
		counted++
		for i, v := range s.SentimentDistribution {
			if i >= len(cumulative) {
				break
			}
			cumulative[i] += v
		}
	}
	if counted > 0 {
		for i, name := range sentimentNames {
			report.Sentiment = append(report.Sentiment, SentimentScore{
				Sentiment: name,
				Score:     cumulative[i] / float64(counted),
			})
		}
		slices.SortStableFunc(report.Sentiment, func(a, b SentimentScore) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
	}

	// Collect entity mentions, dropping untagged tokens and bare pronouns.
	var names, types []string
	var details []NERMention
	for _, s := range sentences {
		for _, mention := range s.EntityMentions {
			if mention.NER == "O" || slices.Contains(pronounMentions, strings.ToLower(mention.Text)) {
				continue
			}
			details = append(details, NERMention{
				Text:          mention.Text,
				NER:           mention.NER,
				NormalizedNER: mention.NormalizedNER,
			})
			names = append(names, mention.Text)
			types = append(types, mention.NER)
		}
	}

	// One detail entry per text, keeping the first occurrence, sorted by text.
	firstByText := make(map[string]NERMention, len(details))
	for _, d := range details {
		if _, ok := firstByText[d.Text]; !ok {
			firstByText[d.Text] = d
		}
	}
	for _, d := range firstByText {
		report.NERDetails = append(report.NERDetails, d)
	}
	slices.SortFunc(report.NERDetails, func(a, b NERMention) int {
		return strings.Compare(a.Text, b.Text)
	})

	report.NERNames = sortedSet(names)
	report.NERTypes = sortedSet(types)

	for _, s := range sentences {
		report.Sentences = append(report.Sentences, s.Raw)
	}

	return Result{Kind: KindReport, Report: report}
}

// sortedSet deduplicates and sorts values, never returning nil.
func sortedSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
