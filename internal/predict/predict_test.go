package predict_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tagbench/internal/completioncache"
	"tagbench/internal/config"
	"tagbench/internal/predict"
	"tagbench/internal/prompt"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

type step struct {
	content string
	err     error
}

// scriptedBackend replays steps per user content, then repeats the last one.
type scriptedBackend struct {
	mu     sync.Mutex
	script map[string][]step
	calls  map[string]int
	seen   []llm.Request
}

func newScripted(script map[string][]step) *scriptedBackend {
	return &scriptedBackend{script: script, calls: map[string]int{}}
}

func (b *scriptedBackend) Name() string { return "fake" }

func (b *scriptedBackend) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, req)
	_, _, user := llm.Split(req.Messages)
	steps := b.script[user]
	n := b.calls[user]
	b.calls[user]++
	if len(steps) == 0 {
		return llm.Response{Content: user}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	s := steps[n]
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.content, Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 1}}, nil
}

func (b *scriptedBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}

func transientErr() error {
	return services.Wrap(services.ErrTransient, "fake", "complete", "service unavailable", nil)
}

func routerFor(backend llm.Backend) *predict.Router {
	return predict.NewStaticRouter(map[string]llm.Backend{"fake": backend}, map[string]string{"m": "fake"})
}

func recordingSleeper(delays *[]time.Duration) predict.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

var testConfig = prompt.Config{ModelID: "m", Strategy: prompt.ZeroShot, SystemContent: "system"}

func TestClassifyTrimsReply(t *testing.T) {
	backend := newScripted(map[string][]step{"u": {{content: "  mlops \n"}}})
	p := predict.New(routerFor(backend))

	got, usage, err := p.Classify(context.Background(), testConfig, "u")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got != "mlops" || usage.Total() != 11 {
		t.Fatalf("unexpected result %q %+v", got, usage)
	}
	if len(backend.seen[0].Messages) != 2 {
		t.Fatalf("zero-shot request should carry two turns, got %d", len(backend.seen[0].Messages))
	}
}

func TestClassifyUnknownModelIsConfigurationError(t *testing.T) {
	p := predict.New(routerFor(newScripted(nil)))
	_, _, err := p.Classify(context.Background(), prompt.Config{ModelID: "missing"}, "u")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPredictAllRetriesSameRecordAndStaysAligned(t *testing.T) {
	backend := newScripted(map[string][]step{
		"a": {{content: "x"}},
		"b": {{err: transientErr()}, {err: transientErr()}, {content: "y"}},
		"c": {{content: "z"}},
	})
	var delays []time.Duration
	p := predict.New(routerFor(backend),
		predict.WithRetryPolicy(predict.RetryPolicy{Cooldown: time.Second, Multiplier: 2, MaxDelay: time.Minute}),
		predict.WithSleeper(recordingSleeper(&delays)),
	)

	got, usage, err := p.PredictAll(context.Background(), testConfig, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("PredictAll returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, got); diff != "" {
		t.Fatalf("predictions mismatch (-want +got):\n%s", diff)
	}
	if backend.total() != 5 {
		t.Fatalf("expected 5 backend calls, got %d", backend.total())
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if usage.Total() != 33 {
		t.Fatalf("expected usage from three successful calls, got %+v", usage)
	}
}

func TestPredictAllTransientThenSuccessMakesTwoCalls(t *testing.T) {
	backend := newScripted(map[string][]step{"only": {{err: transientErr()}, {content: "mlops"}}})
	var delays []time.Duration
	p := predict.New(routerFor(backend),
		predict.WithRetryPolicy(predict.RetryPolicy{Cooldown: 30 * time.Second, Multiplier: 1}),
		predict.WithSleeper(recordingSleeper(&delays)),
	)
	got, _, err := p.PredictAll(context.Background(), testConfig, []string{"only"})
	if err != nil {
		t.Fatalf("PredictAll returned error: %v", err)
	}
	if got[0] != "mlops" || backend.total() != 2 || len(delays) != 1 || delays[0] != 30*time.Second {
		t.Fatalf("unexpected outcome: got=%v calls=%d delays=%v", got, backend.total(), delays)
	}
}

func TestPredictAllExhaustsRetryBudget(t *testing.T) {
	backend := newScripted(map[string][]step{"a": {{err: transientErr()}}})
	var delays []time.Duration
	p := predict.New(routerFor(backend),
		predict.WithRetryPolicy(predict.RetryPolicy{MaxAttempts: 3, Cooldown: time.Second, Multiplier: 1}),
		predict.WithSleeper(recordingSleeper(&delays)),
	)
	_, _, err := p.PredictAll(context.Background(), testConfig, []string{"a"})
	if !errors.Is(err, services.ErrRetryExhausted) {
		t.Fatalf("expected retry exhausted, got %v", err)
	}
	if backend.total() != 3 || len(delays) != 2 {
		t.Fatalf("expected 3 attempts and 2 waits, got %d and %d", backend.total(), len(delays))
	}
}

func TestPredictAllFatalErrorAborts(t *testing.T) {
	fatal := errors.New("bad request")
	backend := newScripted(map[string][]step{"b": {{err: fatal}}})
	p := predict.New(routerFor(backend))
	_, _, err := p.PredictAll(context.Background(), testConfig, []string{"a", "b", "c"})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if backend.total() != 2 {
		t.Fatalf("expected batch to stop at the failing record, got %d calls", backend.total())
	}
}

func TestPredictAllCancelAbortsWait(t *testing.T) {
	backend := newScripted(map[string][]step{"a": {{err: transientErr()}}})
	ctx, cancel := context.WithCancel(context.Background())
	p := predict.New(routerFor(backend),
		predict.WithRetryPolicy(predict.RetryPolicy{Cooldown: time.Hour, Multiplier: 1}),
		predict.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	_, _, err := p.PredictAll(ctx, testConfig, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if backend.total() != 1 {
		t.Fatalf("expected a single attempt, got %d", backend.total())
	}
}

func TestPredictAllReportsProgress(t *testing.T) {
	var seen []int
	p := predict.New(routerFor(newScripted(nil)), predict.WithProgress(func(done, total int) {
		if total != 3 {
			t.Errorf("unexpected total %d", total)
		}
		seen = append(seen, done)
	}))
	if _, _, err := p.PredictAll(context.Background(), testConfig, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("PredictAll returned error: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, seen); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictAllEmptyBatch(t *testing.T) {
	p := predict.New(routerFor(newScripted(nil)))
	got, _, err := p.PredictAll(context.Background(), testConfig, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}

func TestClassifyUsesCompletionCache(t *testing.T) {
	store, err := completioncache.Open(context.Background(), t.TempDir()+"/completions.db")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	backend := newScripted(map[string][]step{"u": {{content: "mlops"}}})
	p := predict.New(routerFor(backend), predict.WithCache(store, completioncache.Key))
	for i := 0; i < 2; i++ {
		got, _, err := p.Classify(context.Background(), testConfig, "u")
		if err != nil || got != "mlops" {
			t.Fatalf("call %d: got %q err %v", i, got, err)
		}
	}
	if backend.total() != 1 {
		t.Fatalf("expected the second call to be served from cache, got %d backend calls", backend.total())
	}
}

// sampledBackend reports fixed sampling settings on top of a scripted backend.
type sampledBackend struct {
	*scriptedBackend
	sampling llm.Sampling
}

func (b sampledBackend) Sampling() llm.Sampling { return b.sampling }

func TestClassifyCacheMissesWhenSamplingChanges(t *testing.T) {
	store, err := completioncache.Open(context.Background(), t.TempDir()+"/completions.db")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	scripted := newScripted(map[string][]step{"u": {{content: "mlops"}}})
	for i, sampling := range []llm.Sampling{
		{Temperature: 0, MaxTokens: 64},
		{Temperature: 0.7, MaxTokens: 64},
		{Temperature: 0.7, MaxTokens: 64},
	} {
		p := predict.New(routerFor(sampledBackend{scripted, sampling}), predict.WithCache(store, completioncache.Key))
		if _, _, err := p.Classify(context.Background(), testConfig, "u"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if scripted.total() != 2 {
		t.Fatalf("expected one backend call per distinct sampling, got %d", scripted.total())
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := predict.RetryPolicy{Cooldown: 30 * time.Second, Multiplier: 2, MaxDelay: 5 * time.Minute, Jitter: 0.2}
	mid := func() float64 { return 0.5 }
	cases := []struct {
		attempt int
		hint    time.Duration
		rnd     func() float64
		want    time.Duration
	}{
		{attempt: 1, rnd: mid, want: 30 * time.Second},
		{attempt: 2, rnd: mid, want: time.Minute},
		{attempt: 5, rnd: mid, want: 5 * time.Minute},
		{attempt: 1, rnd: func() float64 { return 0 }, want: 24 * time.Second},
		{attempt: 1, hint: 7 * time.Second, rnd: mid, want: 7 * time.Second},
		{attempt: 1, hint: time.Hour, rnd: mid, want: 5 * time.Minute},
	}
	for _, tc := range cases {
		if got := policy.Delay(tc.attempt, tc.hint, tc.rnd); got != tc.want {
			t.Fatalf("attempt %d hint %s: got %s, want %s", tc.attempt, tc.hint, got, tc.want)
		}
	}
	if policy.Exhausted(100) {
		t.Fatal("zero MaxAttempts must never exhaust")
	}
}

func TestRetryPolicyDelayUncappedNeverWraps(t *testing.T) {
	policy := predict.RetryPolicy{Cooldown: 30 * time.Second, Multiplier: 2}
	prev := time.Duration(0)
	for attempt := 1; attempt <= 2000; attempt++ {
		got := policy.Delay(attempt, 0, nil)
		if got < prev {
			t.Fatalf("attempt %d: delay dropped from %s to %s", attempt, prev, got)
		}
		prev = got
	}
	if prev != time.Duration(math.MaxInt64) {
		t.Fatalf("expected delay to saturate, got %s", prev)
	}
	jittered := policy
	jittered.Jitter = 0.2
	if got := jittered.Delay(2000, 0, func() float64 { return 0.99 }); got != time.Duration(math.MaxInt64) {
		t.Fatalf("jittered delay should saturate, got %s", got)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := predict.PolicyFromConfig(config.Default().Retry)
	want := predict.DefaultRetryPolicy()
	if policy != want {
		t.Fatalf("config defaults %+v differ from DefaultRetryPolicy %+v", policy, want)
	}
}

func TestNewRouterRejectsUnknownKind(t *testing.T) {
	cfg := config.Default()
	cfg.Backends = []config.Backend{{Name: "x", Kind: "carrier-pigeon"}}
	if _, err := predict.NewRouter(context.Background(), &cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRouterRoutesModels(t *testing.T) {
	cfg := config.Default()
	cfg.Backends = []config.Backend{
		{Name: "openai", Kind: config.KindOpenAI},
		{Name: "claude", Kind: config.KindAnthropic},
		{Name: "google", Kind: config.KindGemini},
	}
	cfg.Models = []config.Model{{ID: "gpt", Backend: "openai"}, {ID: "sonnet", Backend: "claude"}, {ID: "flash", Backend: "google"}}
	router, err := predict.NewRouter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	for id, want := range map[string]string{"gpt": "openai", "sonnet": "claude", "flash": "google"} {
		backend, err := router.Backend(id)
		if err != nil {
			t.Fatalf("route %s: %v", id, err)
		}
		if backend.Name() != want {
			t.Fatalf("route %s: got backend %q, want %q", id, backend.Name(), want)
		}
	}
	if diff := cmp.Diff([]string{"flash", "gpt", "sonnet"}, router.Models()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
}
