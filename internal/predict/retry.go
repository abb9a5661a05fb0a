package predict

import (
	"context"
	"math"
	"time"

	"tagbench/internal/config"
)

const (
	defaultCooldown   = 30 * time.Second
	defaultMultiplier = 2.0
	defaultMaxDelay   = 5 * time.Minute
	defaultJitter     = 0.2
)

// RetryPolicy controls how PredictAll waits between attempts on one record.
type RetryPolicy struct {
	// MaxAttempts bounds attempts per record. Zero means unbounded.
	MaxAttempts int
	Cooldown    time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter spreads each computed delay by up to this fraction either way.
	Jitter float64
}

// DefaultRetryPolicy returns the policy used when no configuration is given.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 8,
		Cooldown:    defaultCooldown,
		Multiplier:  defaultMultiplier,
		MaxDelay:    defaultMaxDelay,
		Jitter:      defaultJitter,
	}
}

// PolicyFromConfig converts the [retry] section.
func PolicyFromConfig(r config.Retry) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		Cooldown:    r.Cooldown(),
		Multiplier:  r.Multiplier,
		MaxDelay:    r.MaxDelay(),
		Jitter:      r.Jitter,
	}
}

// Exhausted reports whether attempt (1-based) used up the budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Delay returns the wait before the attempt following attempt (1-based).
// hint is the backend's Retry-After value and wins when positive. rnd must
// return values in [0, 1).
func (p RetryPolicy) Delay(attempt int, hint time.Duration, rnd func() float64) time.Duration {
	if hint > 0 {
		return p.capDelay(hint)
	}
	if p.Cooldown <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	ceiling := float64(math.MaxInt64)
	if p.MaxDelay > 0 {
		ceiling = float64(p.MaxDelay)
	}
	// Clamp before converting: large attempts overflow time.Duration.
	delay := math.Min(float64(p.Cooldown)*math.Pow(multiplier, float64(attempt-1)), ceiling)
	if p.Jitter > 0 && rnd != nil {
		spread := math.Min(p.Jitter, 1)
		delay *= 1 + spread*(2*rnd()-1)
	}
	if delay >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return p.capDelay(time.Duration(delay))
}

func (p RetryPolicy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Sleeper waits for delay or until ctx is done.
type Sleeper func(ctx context.Context, delay time.Duration) error

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
