package verify

import (
	"context"
	"time"

	"leaguecheck/internal/finder"
)

// BackoffConfig configures the rate-limit retry policy.
type BackoffConfig struct {
	MaxRetries int           // Re-runs allowed after the first attempt (default: 3)
	Backoff    time.Duration // Wait before the first retry (default: 60s)
	MaxBackoff time.Duration // Cap on the wait; zero means uncapped
	Multiplier float64       // Growth per retry (default: 1, a fixed interval)
}

// DefaultBackoff returns the policy the finder tolerates in practice.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxRetries: 3,
		Backoff:    60 * time.Second,
		Multiplier: 1,
	}
}

// Sleeper waits for d or until ctx ends, whichever comes first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// ClockSleeper sleeps on the wall clock.
var ClockSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Attempt is one full submit-and-classify pass for a registrant.
type Attempt func(ctx context.Context) (finder.Outcome, error)

// RetryResult is the final outcome of a retry sequence.
type RetryResult struct {
	Outcome finder.Outcome
	Retries int
}

// Retrier re-runs attempts while ShouldRetry holds and budget remains.
type Retrier struct {
	Backoff     BackoffConfig
	ShouldRetry func(finder.Outcome) bool
	Sleeper     Sleeper
	// OnRetry, when set, is called before each backoff wait with the 1-based
	// retry number, the wait, and the outcome that triggered it.
	OnRetry func(retry int, wait time.Duration, last finder.Outcome)
}

// NewRetrier returns a retrier that retries rate-limited outcomes. A nil
// sleeper uses the wall clock.
func NewRetrier(cfg BackoffConfig, sleeper Sleeper) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff().Backoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	if sleeper == nil {
		sleeper = ClockSleeper
	}
	return &Retrier{
		Backoff:     cfg,
		ShouldRetry: finder.IsRateLimited,
		Sleeper:     sleeper,
	}
}

// Do runs attempt, then re-runs it from scratch while the outcome satisfies
// ShouldRetry and retries remain. When the budget runs out the last outcome
// stands. An attempt error or a cancelled wait ends the sequence and is
// returned alongside the outcome reached so far.
func (r *Retrier) Do(ctx context.Context, attempt Attempt) (RetryResult, error) {
	var res RetryResult
	wait := r.Backoff.Backoff

	for {
		outcome, err := attempt(ctx)
		if err != nil {
			return res, err
		}
		res.Outcome = outcome

		if !r.ShouldRetry(outcome) || res.Retries >= r.Backoff.MaxRetries {
			return res, nil
		}

		if r.OnRetry != nil {
			r.OnRetry(res.Retries+1, wait, outcome)
		}
		if err := r.Sleeper.Sleep(ctx, wait); err != nil {
			return res, err
		}
		res.Retries++

		wait = time.Duration(float64(wait) * r.Backoff.Multiplier)
		if r.Backoff.MaxBackoff > 0 && wait > r.Backoff.MaxBackoff {
			wait = r.Backoff.MaxBackoff
		}
	}
}
