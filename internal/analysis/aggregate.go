package analysis

import (
	"slices"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Aggregation parameters.
const (
	// TopScoredResults is how many of a chunk's highest-scoring labels are
	// credited when a scored model reports four or more labels.
	TopScoredResults = 3
	// MinChunkOccurrence is the number of distinct chunks a flat-list label
	// must appear in to survive into the file rollup.
	MinChunkOccurrence = 3
	// BinaryThreshold picks the winner when a scored model reports exactly
	// two labels.
	BinaryThreshold = 0.5
)

// qnaIndexKey is the rollup key holding the question index. It sits beside
// the model-name keys, ordered by when the first answered question appeared.
const qnaIndexKey = "qna_index"

// ChunkResults couples one chunk's id with everything the configured models
// produced for it.
type ChunkResults struct {
	ChunkID int
	Models  []ModelOutput
}

// qnaTagEntry is the serialized form of one question in the index. Answers
// is keyed by chunk id (as text) in chunk order.
type qnaTagEntry struct {
	Question        string                                 `json:"question"`
	Answers         *orderedmap.OrderedMap[string, string] `json:"answers"`
	NumberOfAnswers int                                    `json:"number_of_answers"`
}

// section accumulates one model's label credits across chunks.
type section struct {
	flat       bool
	labelOrder []string
	ids        map[string][]int
}

func (s *section) register(label string) {
	if _, ok := s.ids[label]; !ok {
		s.labelOrder = append(s.labelOrder, label)
		s.ids[label] = nil
	}
}

func (s *section) credit(label string, chunkID int) {
	s.register(label)
	s.ids[label] = append(s.ids[label], chunkID)
}

// qnaAccum accumulates one tag's answers across chunks.
type qnaAccum struct {
	question   string
	chunkOrder []string
	answers    map[string]string
}

// Aggregate rolls the per-chunk model results of one file up into its chunk
// root: a mapping keyed by model name, each holding that model's labels with
// the sorted chunk ids that carried them, plus the question index under
// "qna_index". Keys appear in the order the models first produced something.
//
// Routing follows the result kind. Flat labels credit every chunk they
// appear in and are dropped below MinChunkOccurrence distinct chunks. Scored
// labels are all registered, so a label the selection rule never credits
// still shows up with an empty id list; per chunk the rule credits the top
// TopScoredResults labels of four or more, the single top label of exactly
// three, the threshold winner of exactly two, and nothing below that.
// Answered questions accumulate into the index by tag. Report results are
// the annotation and astrology blocks, which have no place in a frequency
// rollup and are skipped.
func Aggregate(chunks []ChunkResults) *orderedmap.OrderedMap[string, any] {
	var rootOrder []string
	sections := make(map[string]*section)

	var qnaOrder []string
	qnaTags := make(map[string]*qnaAccum)

	touch := func(name string, flat bool) *section {
		s, ok := sections[name]
		if !ok {
			s = &section{flat: flat, ids: make(map[string][]int)}
			sections[name] = s
			rootOrder = append(rootOrder, name)
		}
		return s
	}

	for _, chunk := range chunks {
		for _, model := range chunk.Models {
			for _, result := range model.Results {
				switch result.Kind {
				case KindFlat:
					s := touch(model.Model, true)
					for _, label := range result.Flat {
						s.credit(label, chunk.ChunkID)
					}

				case KindScored:
					s := touch(model.Model, false)
					for _, entry := range result.Scored {
						s.register(entry.Label)
					}
					creditScored(s, result.Scored, chunk.ChunkID)

				case KindQnA:
					if len(result.QnA) == 0 {
						continue
					}
					if !slices.Contains(rootOrder, qnaIndexKey) {
						rootOrder = append(rootOrder, qnaIndexKey)
					}
					for _, entry := range result.QnA {
						if entry.Tag == "" || entry.Question == "" || len(entry.Answers) == 0 {
							continue
						}
						accum, ok := qnaTags[entry.Tag]
						if !ok {
							accum = &qnaAccum{question: entry.Question, answers: make(map[string]string)}
							qnaTags[entry.Tag] = accum
							qnaOrder = append(qnaOrder, entry.Tag)
						}
						key := strconv.Itoa(chunk.ChunkID)
						if _, exists := accum.answers[key]; !exists {
							accum.chunkOrder = append(accum.chunkOrder, key)
						}
						accum.answers[key] = strings.Join(entry.Answers, "\n\n")
					}

				case KindReport:
					// Annotation and astrology blocks carry no labels to count.
				}
			}
		}
	}

	root := orderedmap.New[string, any]()
	for _, name := range rootOrder {
		if name == qnaIndexKey {
			root.Set(qnaIndexKey, buildQnaIndex(qnaOrder, qnaTags))
			continue
		}
		root.Set(name, cleanSection(sections[name]))
	}
	return root
}

// creditScored applies the per-chunk selection rule to one scored result.
func creditScored(s *section, scored []ScoredLabel, chunkID int) {
	switch {
	case len(scored) >= 4:
		for _, entry := range scored[:TopScoredResults] {
			s.credit(entry.Label, chunkID)
		}
	case len(scored) == 3:
		s.credit(scored[0].Label, chunkID)
	case len(scored) == 2:
		switch {
		case scored[0].Score > BinaryThreshold:
			s.credit(scored[0].Label, chunkID)
		case scored[1].Score > BinaryThreshold:
			s.credit(scored[1].Label, chunkID)
		default:
			s.credit(scored[0].Label, chunkID)
		}
	}
}

// cleanSection deduplicates and sorts one model's accumulated credits into
// its final label map, ranked by descending chunk count with ties broken by
// lowercased label.
func cleanSection(s *section) *orderedmap.OrderedMap[string, any] {
	type labelled struct {
		label string
		ids   []int
	}

	cleaned := make([]labelled, 0, len(s.labelOrder))
	for _, label := range s.labelOrder {
		unique := uniqueSorted(s.ids[label])
		if s.flat && len(unique) < MinChunkOccurrence {
			continue
		}
		cleaned = append(cleaned, labelled{label: label, ids: unique})
	}

	slices.SortStableFunc(cleaned, func(a, b labelled) int {
		if d := len(b.ids) - len(a.ids); d != 0 {
			return d
		}
		return strings.Compare(strings.ToLower(a.label), strings.ToLower(b.label))
	})

	out := orderedmap.New[string, any]()
	for _, entry := range cleaned {
		out.Set(entry.label, entry.ids)
	}
	return out
}

func buildQnaIndex(order []string, tags map[string]*qnaAccum) *orderedmap.OrderedMap[string, qnaTagEntry] {
	index := orderedmap.New[string, qnaTagEntry]()
	for _, tag := range order {
		accum := tags[tag]
		answers := orderedmap.New[string, string]()
		for _, key := range accum.chunkOrder {
			answers.Set(key, accum.answers[key])
		}
		index.Set(tag, qnaTagEntry{
			Question:        accum.question,
			Answers:         answers,
			NumberOfAnswers: answers.Len(),
		})
	}
	return index
}

// uniqueSorted deduplicates and sorts chunk ids, never returning nil.
func uniqueSorted(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
