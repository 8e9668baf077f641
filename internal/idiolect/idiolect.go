// Package idiolect scores how strongly each sentence of a parsed chunk
// leans on the journal author's personal stock phrases, and collects the
// actions the author reports being done to them.
package idiolect

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/NWeiss87/auricle/pkg/provider/parse"
)

const (
	// minDistinctPhrases is how many distinct lexicon phrases a sentence
	// must contain before it is ranked.
	minDistinctPhrases = 4
	// contextDepth is how many preceding sentences travel with a ranked
	// sentence or action.
	contextDepth = 5
)

// Lexicon is the author's phrase inventory. Each source phrase contributes
// itself and, when the contraction map rewrites it, the expanded form as a
// separate entry; the result is deduplicated and sorted. A Lexicon is
// immutable once built and safe for concurrent use.
type Lexicon struct {
	phrases  []string
	patterns []*regexp.Regexp
}

// New builds a lexicon from phrases. Leading and trailing whitespace is
// trimmed and blank entries are dropped.
func New(phrases []string, contractions map[string]string) *Lexicon {
	expand := expander(contractions)

	set := make(map[string]struct{}, len(phrases)*2)
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		set[p] = struct{}{}
		set[expand(p)] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)

	patterns := make([]*regexp.Regexp, len(out))
	for i, p := range out {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(p)) + `\b`)
	}
	return &Lexicon{phrases: out, patterns: patterns}
}

// Load reads one phrase per line from path and builds the lexicon.
func Load(path string, contractions map[string]string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("idiolect: read lexicon %q: %w", path, err)
	}
	return New(strings.Split(string(data), "\n"), contractions), nil
}

// Phrases returns the lexicon entries in sorted order.
func (l *Lexicon) Phrases() []string {
	out := make([]string, len(l.phrases))
	copy(out, l.phrases)
	return out
}

// Len returns the number of entries in the lexicon.
func (l *Lexicon) Len() int { return len(l.phrases) }

// expander compiles the contraction map into a rewrite function. Longer
// contractions are tried first so "can't've" wins over "can't".
func expander(contractions map[string]string) func(string) string {
	if len(contractions) == 0 {
		return func(s string) string { return s }
	}
	keys := make([]string, 0, len(contractions))
	for k := range contractions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	re := regexp.MustCompile("(" + strings.Join(quoted, "|") + ")")
	return func(s string) string {
		return re.ReplaceAllStringFunc(s, func(m string) string { return contractions[m] })
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranking
// ─────────────────────────────────────────────────────────────────────────────

// Report is the ranked view of one parsed chunk.
type Report struct {
	Actions   []Action         `json:"actions"`
	Sentences []RankedSentence `json:"sentences"`
}

// Action is one verb the author reports being directed at them, with the
// surrounding context and the cause analysis of its sentence.
type Action struct {
	Action         string                                `json:"action"`
	Object         string                                `json:"object"`
	Context        []string                              `json:"context"`
	ActionSentence string                                `json:"action_sentence"`
	Causes         *orderedmap.OrderedMap[string, Cause] `json:"actions"`
}

// Cause is one subject-verb-object relation found in a sentence, with the
// entities its prepositional phrases attach.
type Cause struct {
	Subject  string                                   `json:"subject"`
	Object   string                                   `json:"object"`
	Entities *orderedmap.OrderedMap[string, []string] `json:"entities"`
}

// RankedSentence is one sentence that cleared the distinct-phrase bar.
type RankedSentence struct {
	Context            []string     `json:"context"`
	SentenceOfInterest string       `json:"sentence_of_interest"`
	IdiomMatches       IdiomMatches `json:"idiom_matches"`
}

// IdiomMatches summarizes the lexicon hits within one sentence. Idioms maps
// each matched phrase to its occurrence count, highest count first.
type IdiomMatches struct {
	Idioms          *orderedmap.OrderedMap[string, int] `json:"idioms"`
	NumberOfMatches int                                 `json:"number_of_matches"`
	SumOfMatches    int                                 `json:"sum_of_matches"`
}

// Rank scans doc sentence by sentence. Sentences carrying at least four
// distinct lexicon phrases are kept with up to five preceding sentences of
// context; matches are counted against the longest phrase that contains
// them. Every verb with a direct "me" dependent is recorded as an action.
// Kept sentences are ordered by descending total match count.
func Rank(doc *parse.Document, lex *Lexicon) Report {
	report := Report{Actions: []Action{}, Sentences: []RankedSentence{}}
	if doc == nil || lex == nil {
		return report
	}

	for i := range doc.Sentences {
		sent := &doc.Sentences[i]
		causes := sentenceCauses(sent)

		lower := strings.ToLower(sent.Text)
		var all []string
		for _, re := range lex.patterns {
			all = append(all, re.FindAllString(lower, -1)...)
		}

		counts := matchCounts(all)
		if len(counts) >= minDistinctPhrases {
			report.Sentences = append(report.Sentences, RankedSentence{
				Context:            contextBefore(doc.Sentences, i),
				SentenceOfInterest: sent.Text,
				IdiomMatches:       summarize(counts),
			})
		}

		for _, tok := range sent.Tokens {
			if tok.POS != "VERB" {
				continue
			}
			for _, child := range sent.Children(tok) {
				if child.Text != "me" {
					continue
				}
				report.Actions = append(report.Actions, Action{
					Action:         tok.Text,
					Object:         child.Text,
					Context:        contextBefore(doc.Sentences, i),
					ActionSentence: sent.Text,
					Causes:         causes,
				})
				break
			}
		}
	}

	sort.SliceStable(report.Sentences, func(a, b int) bool {
		return report.Sentences[a].IdiomMatches.SumOfMatches > report.Sentences[b].IdiomMatches.SumOfMatches
	})
	return report
}

// matchCounts folds raw pattern hits into per-phrase counts. Every distinct
// hit is attributed to the longest distinct hit that contains it, so "down
// the drain" absorbs the hits of "drain"; equal lengths break toward the
// lexicographically smaller phrase.
func matchCounts(all []string) map[string]int {
	if len(all) == 0 {
		return nil
	}

	occurrences := make(map[string]int, len(all))
	for _, m := range all {
		occurrences[m]++
	}
	uniq := make([]string, 0, len(occurrences))
	for m := range occurrences {
		uniq = append(uniq, m)
	}
	sort.Strings(uniq)

	counts := make(map[string]int)
	for _, m := range uniq {
		longest := m
		for _, cand := range uniq {
			if !strings.Contains(cand, m) {
				continue
			}
			if len(cand) > len(longest) || (len(cand) == len(longest) && cand < longest) {
				longest = cand
			}
		}
		counts[longest] += occurrences[longest]
	}
	return counts
}

// summarize orders the counted phrases by descending count, ties broken
// alphabetically.
func summarize(counts map[string]int) IdiomMatches {
	type entry struct {
		phrase string
		count  int
	}
	entries := make([]entry, 0, len(counts))
	for p, c := range counts {
		entries = append(entries, entry{p, c})
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].count != entries[b].count {
			return entries[a].count > entries[b].count
		}
		return entries[a].phrase < entries[b].phrase
	})

	idioms := orderedmap.New[string, int]()
	sum := 0
	for _, e := range entries {
		idioms.Set(e.phrase, e.count)
		sum += e.count
	}
	return IdiomMatches{Idioms: idioms, NumberOfMatches: len(entries), SumOfMatches: sum}
}

// contextBefore returns the texts of up to contextDepth sentences before
// index i, in document order.
func contextBefore(sentences []parse.Sentence, i int) []string {
	lo := i - contextDepth
	if lo < 0 {
		lo = 0
	}
	out := make([]string, 0, i-lo)
	for _, s := range sentences[lo:i] {
		out = append(out, s.Text)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Cause extraction
// ─────────────────────────────────────────────────────────────────────────────

// sentenceCauses walks each nominal subject up to its governing verb and
// records the verb's subject, object, and attached prepositional entities.
// Only the first verb ancestor with a resolvable object is kept per subject.
func sentenceCauses(s *parse.Sentence) *orderedmap.OrderedMap[string, Cause] {
	causes := orderedmap.New[string, Cause]()
	for _, tok := range s.Tokens {
		if tok.Dep != "nsubj" {
			continue
		}

		subject := tok
		var poss *parse.Token
		for _, child := range s.Children(tok) {
			if child.Dep == "poss" {
				c := child
				poss = &c
				break
			}
		}
		if next, ok := s.Next(subject); ok && subject.POS == "NOUN" && next.Dep == "cop" {
			subject = next
		}

		for _, ancestor := range s.Ancestors(tok) {
			if ancestor.POS != "VERB" {
				continue
			}
			obj, ok := actionObject(s, ancestor)
			if !ok {
				continue
			}
			subjectText := subject.Text
			if poss != nil {
				subjectText = poss.Text + " " + subject.Text
			}
			causes.Set(ancestor.Text, Cause{
				Subject:  subjectText,
				Object:   obj.Text,
				Entities: actionEntities(s, ancestor),
			})
			break
		}
	}
	return causes
}

// actionObject resolves the object of a verb: a direct object or attribute
// wins outright; otherwise the last prepositional or oblique object found
// among the verb's children.
func actionObject(s *parse.Sentence, action parse.Token) (parse.Token, bool) {
	var obj parse.Token
	found := false
	for _, child := range s.Children(action) {
		switch child.Dep {
		case "dobj", "attr":
			return child, true
		case "prep":
			for _, sub := range s.Children(child) {
				if sub.Dep == "pobj" {
					obj, found = sub, true
					break
				}
			}
		case "obl":
			for _, sub := range s.Children(child) {
				if sub.Text != "of" {
					continue
				}
				if kids := s.Children(sub); len(kids) > 0 {
					obj, found = kids[0], true
				}
				break
			}
		}
	}
	return obj, found
}

// actionEntities gathers the noun material under each prepositional child
// of the verb, keyed by the preposition. Pronouns are swapped for their
// nearest noun ancestor and right-hand dependents are appended so compound
// names survive whole.
func actionEntities(s *parse.Sentence, action parse.Token) *orderedmap.OrderedMap[string, []string] {
	entities := orderedmap.New[string, []string]()
	for _, child := range s.Children(action) {
		if child.Dep != "prep" {
			continue
		}
		for _, sub := range s.Children(child) {
			keep := sub.Dep == "pobj" || sub.Dep == "compound" || (sub.Dep == "conj" && sub.POS == "NOUN")
			if !keep {
				continue
			}

			text := sub.Text
			if sub.POS == "PRON" {
				for _, anc := range s.Ancestors(sub) {
					if anc.POS == "NOUN" {
						text = anc.Text
						break
					}
				}
			}
			if rights := s.Rights(sub); len(rights) > 0 {
				parts := []string{text}
				for _, r := range rights {
					parts = append(parts, r.Text)
				}
				text = strings.Join(parts, " ")
			}

			cur, _ := entities.Get(child.Text)
			entities.Set(child.Text, append(cur, text))
		}
	}
	return entities
}
