package finder

import (
	"context"
	"fmt"
	"time"

	"leaguecheck/internal/registrant"

	"go.uber.org/zap"
)

const (
	DefaultResultTimeout = 20 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
)

// Classifier waits for a submitted search to settle and classifies the page.
type Classifier struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Diagnostics  *Diagnostics
	Logger       *zap.Logger
}

// NewClassifier returns a classifier; zero durations take the defaults.
func NewClassifier(timeout, poll time.Duration, diag *Diagnostics, logger *zap.Logger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultResultTimeout
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{Timeout: timeout, PollInterval: poll, Diagnostics: diag, Logger: logger}
}

// ReadRegions takes one snapshot of the result regions.
func ReadRegions(ctx context.Context, page Page) (Regions, error) {
	var r Regions
	if err := page.Eval(ctx, regionsScript, &r); err != nil {
		return Regions{}, fmt.Errorf("read result regions: %w", err)
	}
	return r, nil
}

// Await blocks until the page shows a result region or the timeout expires
// and returns exactly one outcome. It never fails: page read errors and
// timeouts both classify as KindTimeout, after a diagnostic capture.
func (c *Classifier) Await(ctx context.Context, page Page, rec registrant.Record) Outcome {
	waitCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := c.waitTerminal(waitCtx, page); err != nil {
		c.Logger.Warn("no result region appeared",
			zap.String("registrant", rec.Name()),
			zap.Duration("timeout", c.Timeout),
			zap.Error(err))
		c.Diagnostics.Capture(ctx, page, rec)
		return Of(KindTimeout)
	}

	regions, err := ReadRegions(ctx, page)
	if err != nil {
		c.Logger.Warn("result regions vanished before extraction",
			zap.String("registrant", rec.Name()),
			zap.Error(err))
		c.Diagnostics.Capture(ctx, page, rec)
		return Of(KindTimeout)
	}

	outcome := Classify(regions)
	c.Logger.Debug("classified",
		zap.String("registrant", rec.Name()),
		zap.Stringer("outcome", outcome.Kind),
		zap.Strings("leagues", outcome.Leagues))
	return outcome
}

// waitTerminal polls until Regions.Terminal holds. Read errors are expected
// while the page is mid-navigation, so they only end the wait when the
// context does.
func (c *Classifier) waitTerminal(ctx context.Context, page Page) error {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		regions, err := ReadRegions(ctx, page)
		if err == nil && regions.Terminal() {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last read: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
