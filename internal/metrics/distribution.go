package metrics

// TagCount pairs a label with how often it appears in truth and predictions.
type TagCount struct {
	Label     string `json:"label"`
	True      int    `json:"true"`
	Predicted int    `json:"predicted"`
}

// Distribution counts each label in yTrue and yPred, ordered by label.
// The slices need not be the same length.
func Distribution(yTrue, yPred []string) []TagCount {
	trueCounts := tally(yTrue)
	predCounts := tally(yPred)
	labels := Labels(yTrue, yPred)
	out := make([]TagCount, 0, len(labels))
	for _, l := range labels {
		out = append(out, TagCount{Label: l, True: trueCounts[l], Predicted: predCounts[l]})
	}
	return out
}

func tally(values []string) map[string]int {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	return counts
}
