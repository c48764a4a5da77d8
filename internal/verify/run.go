// Package verify sequences a verification run: one registrant at a time,
// each through the retry controller, paced, with every result collected.
package verify

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultPacing is the wait after every registrant.
const DefaultPacing = 30 * time.Second

// DefaultLeague is the league registrations are checked against.
const DefaultLeague = "WALNUT CREEK LL"

// Submitter fills in and submits the finder form.
type Submitter interface {
	Submit(ctx context.Context, page finder.Page, rec registrant.Record) error
}

// Awaiter reads the settled page into an outcome.
type Awaiter interface {
	Await(ctx context.Context, page finder.Page, rec registrant.Record) finder.Outcome
}

// RunnerConfig configures a Runner. Page, Submitter and Awaiter are required.
type RunnerConfig struct {
	Page            finder.Page
	Submitter       Submitter
	Awaiter         Awaiter
	Retrier         *Retrier
	League          string
	Division        string
	DefaultBirthday registrant.Birthday
	Pacing          time.Duration
	Sleeper         Sleeper
	Observer        Observer
	Logger          *zap.Logger
	Tracer          trace.Tracer
	Now             func() time.Time
	NewID           func() string
}

// Runner is the top-level sequencer of a verification run.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner returns a runner with defaults applied.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.League == "" {
		cfg.League = DefaultLeague
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = ClockSleeper
	}
	if cfg.Retrier == nil {
		cfg.Retrier = NewRetrier(DefaultBackoff(), cfg.Sleeper)
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("leaguecheck/verify")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Runner{cfg: cfg}
}

// Run verifies records in order and returns the sealed result set. A
// registrant's execution error or panic becomes a failed entry and the run
// moves on. If ctx ends, the registrant in progress is dropped and the
// entries collected so far are returned together with the context error.
func (r *Runner) Run(ctx context.Context, records []registrant.Record) (*ResultSet, error) {
	cfg := r.cfg
	info := RunInfo{
		ID:        cfg.NewID(),
		League:    cfg.League,
		Division:  cfg.Division,
		StartedAt: cfg.Now(),
	}
	rs := NewResultSet(info)
	log := cfg.Logger.With(zap.String("run_id", info.ID))

	ctx, span := cfg.Tracer.Start(ctx, "verify.run", trace.WithAttributes(
		attribute.String("run.id", info.ID),
		attribute.String("run.league", info.League),
		attribute.Int("run.registrants", len(records)),
	))
	defer span.End()

	log.Info("run started",
		zap.String("league", info.League),
		zap.String("division", info.Division),
		zap.Int("registrants", len(records)))
	cfg.Observer.RunStarted(info, len(records))

	var runErr error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		entry, err := r.verifyOne(ctx, i, len(records), rec)
		if err != nil {
			log.Warn("run interrupted, dropping registrant in progress",
				zap.String("registrant", rec.Name()),
				zap.Error(err))
			runErr = err
			break
		}
		if err := rs.Append(entry); err != nil {
			return rs, fmt.Errorf("record %s: %w", rec.Name(), err)
		}
		cfg.Observer.RegistrantFinished(rec, entry)

		if err := cfg.Sleeper.Sleep(ctx, cfg.Pacing); err != nil {
			runErr = err
			break
		}
	}

	if err := rs.Seal(cfg.Now(), runErr != nil); err != nil {
		return rs, err
	}
	passed, failed := len(rs.Pass()), len(rs.Fail())
	span.SetAttributes(attribute.Int("run.passed", passed), attribute.Int("run.failed", failed))
	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
		runErr = fmt.Errorf("run cancelled after %d of %d registrants: %w", passed+failed, len(records), runErr)
	}
	log.Info("run finished", zap.Int("passed", passed), zap.Int("failed", failed), zap.Bool("cancelled", runErr != nil))
	cfg.Observer.RunFinished(rs)
	return rs, runErr
}

// verifyOne runs the retry controller for one registrant. It returns an
// error only when ctx has ended; every other failure is folded into the
// entry.
func (r *Runner) verifyOne(ctx context.Context, index, total int, rec registrant.Record) (entry Entry, err error) {
	cfg := r.cfg
	log := cfg.Logger.With(zap.String("registrant", rec.Name()))

	ctx, span := cfg.Tracer.Start(ctx, "verify.registrant", trace.WithAttributes(
		attribute.Int("registrant.index", index),
		attribute.String("registrant.sport", string(rec.SportOrDefault())),
	))
	defer span.End()

	entry = Entry{
		Name:    rec.Name(),
		Address: rec.QueryAddress(),
		Sport:   rec.SportOrDefault(),
		Verdict: VerdictFail,
	}
	birthday, parsed := rec.BirthdayOr(cfg.DefaultBirthday)
	cfg.Observer.RegistrantStarted(index+1, total, rec, birthday, parsed)

	defer func() {
		if p := recover(); p != nil {
			log.Error("registrant panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			span.SetStatus(codes.Error, "panic")
			entry.Verdict = VerdictFail
			entry.Err = fmt.Sprintf("panic: %v", p)
			err = nil
		}
	}()

	retrier := *cfg.Retrier
	retrier.OnRetry = func(retry int, wait time.Duration, _ finder.Outcome) {
		log.Warn("rate limited, backing off",
			zap.Int("retry", retry),
			zap.Int("max_retries", retrier.Backoff.MaxRetries),
			zap.Duration("wait", wait))
		cfg.Observer.RateLimitRetry(rec, retry, retrier.Backoff.MaxRetries, wait)
	}

	attempts := 0
	res, err := retrier.Do(ctx, func(ctx context.Context) (finder.Outcome, error) {
		attempts++
		actx, aspan := cfg.Tracer.Start(ctx, "verify.attempt", trace.WithAttributes(
			attribute.Int("attempt", attempts),
		))
		defer aspan.End()

		start := cfg.Now()
		if err := cfg.Submitter.Submit(actx, cfg.Page, rec); err != nil {
			aspan.RecordError(err)
			aspan.SetStatus(codes.Error, err.Error())
			return finder.Outcome{}, err
		}
		outcome := cfg.Awaiter.Await(actx, cfg.Page, rec)
		aspan.SetAttributes(attribute.String("outcome", outcome.Kind.String()))
		cfg.Observer.AttemptFinished(rec, attempts, outcome, cfg.Now().Sub(start))
		return outcome, nil
	})
	entry.Retries = res.Retries

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Entry{}, ctxErr
		}
		log.Warn("registrant failed with execution error", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		entry.Err = err.Error()
		return entry, nil
	}

	entry.Outcome = res.Outcome
	entry.Verdict = Judge(res.Outcome, cfg.League)
	span.SetAttributes(
		attribute.String("verdict", string(entry.Verdict)),
		attribute.Int("retries", res.Retries),
	)
	log.Info("registrant verified",
		zap.String("verdict", string(entry.Verdict)),
		zap.Stringer("outcome", res.Outcome.Kind),
		zap.String("found", res.Outcome.Description()),
		zap.Int("retries", res.Retries))
	return entry, nil
}
