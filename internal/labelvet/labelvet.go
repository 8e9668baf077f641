// Package labelvet flags near-duplicate entries in a labels file before
// they are handed to classification models. Two labels that sound alike or
// differ by a few characters split one theme's chunk credit across two
// aggregate rows, so the vet reports them for manual cleanup.
//
// Scoring proceeds in two stages, pairwise over the label list:
//
//  1. Phonetic evidence: Double Metaphone codes are computed for each word
//     of both labels. If any code overlaps, the pair is phonetically
//     suspect and is reported when its Jaro-Winkler similarity reaches the
//     phonetic threshold (default 0.70).
//
//  2. Fuzzy evidence: pairs without phonetic overlap are reported when
//     their Jaro-Winkler similarity alone reaches the fuzzy threshold
//     (default 0.85).
//
// Similarity is computed case-insensitively on the full labels, on the
// space-stripped labels, and pairwise across words, keeping the best score,
// so multi-word labels ("self doubt" vs "self-doubt lines") rank sensibly.
package labelvet

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Duplicate is one suspect label pair. First and Second keep the spellings
// from the labels file, in file order. Phonetic reports whether the pair
// shared a Double Metaphone code.
type Duplicate struct {
	First    string
	Second   string
	Score    float64
	Phonetic bool
}

// Option is a functional option for configuring a [Vetter].
type Option func(*Vetter)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score at which a
// phonetically-overlapping pair is reported. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(v *Vetter) {
		v.phoneticThreshold = threshold
	}
}

// WithThreshold sets the minimum Jaro-Winkler score at which a pair with no
// phonetic overlap is reported. Default: 0.85.
func WithThreshold(threshold float64) Option {
	return func(v *Vetter) {
		v.fuzzyThreshold = threshold
	}
}

// Vetter scores label pairs for near-duplication. All methods are safe for
// concurrent use; the Vetter is read-only after construction.
type Vetter struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Vetter] configured with the supplied options.
func New(opts ...Option) *Vetter {
	v := &Vetter{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Vet scans every unordered label pair and returns the suspect ones,
// highest score first. Pairs with equal scores keep file order. Fewer than
// two labels yields nil.
func (v *Vetter) Vet(labels []string) []Duplicate {
	if len(labels) < 2 {
		return nil
	}

	type prepared struct {
		original string
		lower    string
		tokens   []string
		codes    map[string]struct{}
	}
	prep := make([]prepared, 0, len(labels))
	for _, label := range labels {
		lower := strings.ToLower(strings.TrimSpace(label))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		prep = append(prep, prepared{
			original: label,
			lower:    lower,
			tokens:   tokens,
			codes:    codesForTokens(tokens),
		})
	}

	var found []Duplicate
	for i := 0; i < len(prep); i++ {
		for j := i + 1; j < len(prep); j++ {
			a, b := prep[i], prep[j]
			phonetic := codesOverlap(a.codes, b.codes)
			score := bestJWScore(a.tokens, b.tokens, a.lower, b.lower)

			threshold := v.fuzzyThreshold
			if phonetic {
				threshold = v.phoneticThreshold
			}
			if score >= threshold {
				found = append(found, Duplicate{
					First:    a.original,
					Second:   b.original,
					Score:    score,
					Phonetic: phonetic,
				})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	return found
}

// LoadLabels reads a labels file, one label per line. Blank lines are
// skipped and surrounding whitespace is trimmed.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("labelvet: open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("labelvet: read labels file: %w", err)
	}
	return labels, nil
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between two
// labels across three comparisons: the full strings, the space-stripped
// strings, and the best-scoring word pair.
func bestJWScore(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		concatA := strings.Join(aTokens, "")
		concatB := strings.Join(bTokens, "")
		if s := matchr.JaroWinkler(concatA, concatB, false); s > score {
			score = s
		}
	}

	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}

	return score
}
