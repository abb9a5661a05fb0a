package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tagbench/internal/services"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestWeightedMatchesSupportWeightedAverage(t *testing.T) {
	report, err := Weighted([]string{"a", "a", "b"}, []string{"a", "b", "b"})
	if err != nil {
		t.Fatalf("Weighted returned error: %v", err)
	}
	if !approx(report.Precision, 5.0/6) || !approx(report.Recall, 2.0/3) || !approx(report.F1, 2.0/3) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestWeightedFromConfusionTable(t *testing.T) {
	// rows are truth, columns are predictions
	table := map[string]map[string]int{
		"a": {"a": 3, "b": 1},
		"b": {"b": 2, "c": 1},
		"c": {"b": 1, "c": 1},
	}
	var yTrue, yPred []string
	for _, truth := range []string{"a", "b", "c"} {
		for _, pred := range []string{"a", "b", "c"} {
			for range table[truth][pred] {
				yTrue = append(yTrue, truth)
				yPred = append(yPred, pred)
			}
		}
	}

	confusion, err := NewConfusion(yTrue, yPred)
	if err != nil {
		t.Fatalf("NewConfusion returned error: %v", err)
	}
	for truth, row := range table {
		for pred, n := range row {
			if got := confusion.Count(truth, pred); got != n {
				t.Fatalf("count(%s, %s) = %d, want %d", truth, pred, got, n)
			}
		}
	}

	classes, err := PerClass(yTrue, yPred)
	if err != nil {
		t.Fatalf("PerClass returned error: %v", err)
	}
	wantClasses := []ClassScore{
		{Label: "a", Precision: 3.0 / 3, Recall: 3.0 / 4, F1: 6.0 / 7, Support: 4},
		{Label: "b", Precision: 2.0 / 4, Recall: 2.0 / 3, F1: 4.0 / 7, Support: 3},
		{Label: "c", Precision: 1.0 / 2, Recall: 1.0 / 2, F1: 1.0 / 2, Support: 2},
	}
	if diff := cmp.Diff(wantClasses, classes, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("per-class mismatch (-want +got):\n%s", diff)
	}

	report, err := Weighted(yTrue, yPred)
	if err != nil {
		t.Fatalf("Weighted returned error: %v", err)
	}
	// (4*1 + 3*1/2 + 2*1/2) / 9, (3+2+1) / 9, (4*6/7 + 3*4/7 + 2*1/2) / 9
	if !approx(report.Precision, 13.0/18) || !approx(report.Recall, 2.0/3) || !approx(report.F1, 43.0/63) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestWeightedPerfectAndEmpty(t *testing.T) {
	perfect, err := Weighted([]string{"x", "y", "y"}, []string{"x", "y", "y"})
	if err != nil {
		t.Fatalf("Weighted returned error: %v", err)
	}
	if perfect != (Report{Precision: 1, Recall: 1, F1: 1}) {
		t.Fatalf("expected perfect scores, got %+v", perfect)
	}
	empty, err := Weighted(nil, nil)
	if err != nil || empty != (Report{}) {
		t.Fatalf("expected zero report for empty input, got %+v %v", empty, err)
	}
}

func TestWeightedIgnoresPredictionOnlyLabels(t *testing.T) {
	// "other" has zero true support; only the missed "a" shows up.
	report, err := Weighted([]string{"a", "a"}, []string{"a", "other"})
	if err != nil {
		t.Fatalf("Weighted returned error: %v", err)
	}
	if !approx(report.Precision, 1) || !approx(report.Recall, 0.5) || !approx(report.F1, 2.0/3.0) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestLengthMismatchIsValidationError(t *testing.T) {
	if _, err := Weighted([]string{"a"}, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := Accuracy([]string{"a"}, []string{"a", "b"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPerClass(t *testing.T) {
	got, err := PerClass([]string{"a", "a", "b"}, []string{"a", "b", "b"})
	if err != nil {
		t.Fatalf("PerClass returned error: %v", err)
	}
	want := []ClassScore{
		{Label: "a", Precision: 1, Recall: 0.5, F1: 2.0 / 3.0, Support: 2},
		{Label: "b", Precision: 0.5, Recall: 1, F1: 2.0 / 3.0, Support: 1},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("per-class mismatch (-want +got):\n%s", diff)
	}
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]string{"a", "b", "c", "d"}, []string{"a", "b", "x", "d"})
	if err != nil || acc != 0.75 {
		t.Fatalf("unexpected accuracy %v %v", acc, err)
	}
}

func TestConfusion(t *testing.T) {
	c, err := NewConfusion([]string{"a", "a", "b"}, []string{"a", "b", "b"})
	if err != nil {
		t.Fatalf("NewConfusion returned error: %v", err)
	}
	want := Confusion{Labels: []string{"a", "b"}, Counts: [][]int{{1, 1}, {0, 1}}}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("confusion mismatch (-want +got):\n%s", diff)
	}
	if c.Count("a", "b") != 1 || c.Count("missing", "a") != 0 {
		t.Fatal("unexpected cell lookup")
	}
}

func TestDistribution(t *testing.T) {
	got := Distribution([]string{"b", "a", "a"}, []string{"a", "other", "a"})
	want := []TagCount{
		{Label: "a", True: 2, Predicted: 2},
		{Label: "b", True: 1, Predicted: 0},
		{Label: "other", True: 0, Predicted: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
}
