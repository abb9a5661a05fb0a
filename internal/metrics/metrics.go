package metrics

import (
	"fmt"
	"sort"

	"tagbench/internal/services"
)

// Report holds support-weighted precision, recall, and F1.
type Report struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ClassScore is the per-label breakdown behind a Report.
type ClassScore struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Weighted averages per-label precision, recall, and F1 over the sorted union
// of labels in yTrue and yPred, weighting each label by its ground-truth
// support. Undefined ratios count as zero.
func Weighted(yTrue, yPred []string) (Report, error) {
	classes, err := PerClass(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	var total int
	var report Report
	for _, c := range classes {
		w := float64(c.Support)
		report.Precision += w * c.Precision
		report.Recall += w * c.Recall
		report.F1 += w * c.F1
		total += c.Support
	}
	if total == 0 {
		return Report{}, nil
	}
	report.Precision /= float64(total)
	report.Recall /= float64(total)
	report.F1 /= float64(total)
	return report, nil
}

// PerClass returns scores for every label in the sorted union of yTrue and yPred.
func PerClass(yTrue, yPred []string) ([]ClassScore, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return nil, err
	}
	tp := map[string]int{}
	fp := map[string]int{}
	fn := map[string]int{}
	support := map[string]int{}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		support[t]++
		if t == p {
			tp[t]++
			continue
		}
		fp[p]++
		fn[t]++
	}

	labels := Labels(yTrue, yPred)
	out := make([]ClassScore, 0, len(labels))
	for _, label := range labels {
		precision := ratio(tp[label], tp[label]+fp[label])
		recall := ratio(tp[label], tp[label]+fn[label])
		var f1 float64
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		out = append(out, ClassScore{
			Label:     label,
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support[label],
		})
	}
	return out, nil
}

// Accuracy is the fraction of positions where prediction equals truth.
func Accuracy(yTrue, yPred []string) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	var correct int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return ratio(correct, len(yTrue)), nil
}

// Labels returns the sorted union of labels observed in any of the slices.
func Labels(slices ...[]string) []string {
	seen := map[string]struct{}{}
	for _, s := range slices {
		for _, v := range s {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func checkLengths(yTrue, yPred []string) error {
	if len(yTrue) != len(yPred) {
		return services.Wrap(services.ErrValidation, "metrics", "score",
			fmt.Sprintf("length mismatch: %d true labels, %d predictions", len(yTrue), len(yPred)), nil)
	}
	return nil
}
