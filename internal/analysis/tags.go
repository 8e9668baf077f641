package analysis

// MergeQuestionTags unions into existing the tag of every question the
// named model answered for this chunk. The result is distinct and sorted.
func MergeQuestionTags(existing []string, outputs []ModelOutput, model string) []string {
	merged := make([]string, 0, len(existing))
	merged = append(merged, existing...)
	for _, out := range outputs {
		if out.Model != model {
			continue
		}
		for _, r := range out.Results {
			if r.Kind != KindQnA {
				continue
			}
			for _, a := range r.QnA {
				merged = append(merged, a.Tag)
			}
		}
	}
	return sortedSet(merged)
}

// MergeFlat unions into existing every flat label the named model produced
// for this chunk. The result is distinct and sorted.
func MergeFlat(existing []string, outputs []ModelOutput, model string) []string {
	merged := make([]string, 0, len(existing))
	merged = append(merged, existing...)
	for _, out := range outputs {
		if out.Model != model {
			continue
		}
		for _, r := range out.Results {
			if r.Kind != KindFlat {
				continue
			}
			merged = append(merged, r.Flat...)
		}
	}
	return sortedSet(merged)
}
