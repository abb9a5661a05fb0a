package evaluate_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tagbench/internal/dataset"
	"tagbench/internal/evaluate"
	"tagbench/internal/labels"
	"tagbench/internal/metrics"
	"tagbench/internal/prompt"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

type fakePredictor struct {
	replies map[string]string
	err     error
	users   []string
}

func (f *fakePredictor) PredictAll(_ context.Context, _ prompt.Config, users []string) ([]string, llm.Usage, error) {
	f.users = users
	if f.err != nil {
		return nil, llm.Usage{}, f.err
	}
	out := make([]string, len(users))
	for i, u := range users {
		for title, reply := range f.replies {
			if strings.Contains(u, title) {
				out[i] = reply
			}
		}
	}
	return out, llm.Usage{PromptTokens: int64(10 * len(users))}, nil
}

func mustSet(t *testing.T, values ...string) labels.Set {
	t.Helper()
	set, err := labels.New(values)
	if err != nil {
		t.Fatalf("labels.New: %v", err)
	}
	return set
}

func TestEvaluateSanitizesAndScores(t *testing.T) {
	records := []dataset.Record{
		{Title: "r1", Description: "d", Tag: "a"},
		{Title: "r2", Description: "d", Tag: "a"},
		{Title: "r3", Description: "d", Tag: "b"},
	}
	predictor := &fakePredictor{replies: map[string]string{"r1": "a", "r2": "'b'", "r3": "b"}}
	var sunk []metrics.TagCount
	clock := time.Unix(0, 0)
	ev := evaluate.New(predictor, "other",
		evaluate.WithDistributionSink(func(_ prompt.Config, dist []metrics.TagCount) { sunk = dist }),
		evaluate.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)

	out, err := ev.Evaluate(context.Background(), records, prompt.Config{ModelID: "m", Strategy: prompt.FewShot}, mustSet(t, "a", "b"))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "b"}, out.Predictions); diff != "" {
		t.Fatalf("predictions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "'b'", "b"}, out.Raw); diff != "" {
		t.Fatalf("raw mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(out.Report.Precision-5.0/6.0) > 1e-6 || math.Abs(out.Report.Recall-2.0/3.0) > 1e-6 {
		t.Fatalf("unexpected report %+v", out.Report)
	}
	if out.ModelID != "m" || out.Strategy != prompt.FewShot || out.Elapsed != time.Second {
		t.Fatalf("unexpected outcome metadata %+v", out)
	}
	if out.Usage.PromptTokens != 30 {
		t.Fatalf("unexpected usage %+v", out.Usage)
	}
	want := []metrics.TagCount{{Label: "a", True: 2, Predicted: 1}, {Label: "b", True: 1, Predicted: 2}}
	if diff := cmp.Diff(want, sunk); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
	for _, u := range predictor.users {
		if strings.Contains(u, `"tag"`) {
			t.Fatalf("user content leaked the tag: %s", u)
		}
	}
}

func TestEvaluateCoercesUnknownToDefault(t *testing.T) {
	records := []dataset.Record{{Title: "r1", Tag: "a"}}
	predictor := &fakePredictor{replies: map[string]string{"r1": "banana"}}
	out, err := evaluate.New(predictor, "other").Evaluate(context.Background(), records, prompt.Config{ModelID: "m"}, mustSet(t, "a"))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out.Predictions[0] != "other" || out.Report != (metrics.Report{}) {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestEvaluatePropagatesPredictorError(t *testing.T) {
	boom := services.Wrap(services.ErrRetryExhausted, "predict", "predict all", "gave up", nil)
	_, err := evaluate.New(&fakePredictor{err: boom}, "other").
		Evaluate(context.Background(), []dataset.Record{{Title: "x", Tag: "a"}}, prompt.Config{ModelID: "m"}, mustSet(t, "a"))
	if !errors.Is(err, services.ErrRetryExhausted) {
		t.Fatalf("expected predictor error, got %v", err)
	}
}

func TestEvaluateRequiresLabels(t *testing.T) {
	_, err := evaluate.New(&fakePredictor{}, "other").Evaluate(context.Background(), nil, prompt.Config{}, labels.Set{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
