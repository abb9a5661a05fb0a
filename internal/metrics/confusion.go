package metrics

// Confusion is a square matrix indexed by Labels; Counts[i][j] is the number
// of records with true label Labels[i] predicted as Labels[j].
type Confusion struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// NewConfusion tallies a confusion matrix over the sorted union of labels.
func NewConfusion(yTrue, yPred []string) (Confusion, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return Confusion{}, err
	}
	labels := Labels(yTrue, yPred)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}
	return Confusion{Labels: labels, Counts: counts}, nil
}

// Count returns the cell for (truth, predicted), zero when either is unknown.
func (c Confusion) Count(truth, predicted string) int {
	ti, pi := -1, -1
	for i, l := range c.Labels {
		if l == truth {
			ti = i
		}
		if l == predicted {
			pi = i
		}
	}
	if ti < 0 || pi < 0 {
		return 0
	}
	return c.Counts[ti][pi]
}
