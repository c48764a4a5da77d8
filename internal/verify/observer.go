package verify

import (
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
)

// Observer receives run progress. Callbacks run on the run goroutine and
// must not block for long.
type Observer interface {
	RunStarted(info RunInfo, total int)
	RegistrantStarted(index, total int, rec registrant.Record, birthday registrant.Birthday, parsed bool)
	AttemptFinished(rec registrant.Record, attempt int, outcome finder.Outcome, elapsed time.Duration)
	RateLimitRetry(rec registrant.Record, retry, maxRetries int, wait time.Duration)
	RegistrantFinished(rec registrant.Record, entry Entry)
	RunFinished(rs *ResultSet)
}

// NopObserver implements Observer with no-ops; embed it to handle a subset.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo, int) {}
func (NopObserver) RegistrantStarted(int, int, registrant.Record, registrant.Birthday, bool) {}
func (NopObserver) AttemptFinished(registrant.Record, int, finder.Outcome, time.Duration) {}
func (NopObserver) RateLimitRetry(registrant.Record, int, int, time.Duration) {}
func (NopObserver) RegistrantFinished(registrant.Record, Entry) {}
func (NopObserver) RunFinished(*ResultSet) {}

// Observers fans events out in order.
type Observers []Observer

func (obs Observers) RunStarted(info RunInfo, total int) {
	for _, o := range obs {
		o.RunStarted(info, total)
	}
}

func (obs Observers) RegistrantStarted(index, total int, rec registrant.Record, birthday registrant.Birthday, parsed bool) {
	for _, o := range obs {
		o.RegistrantStarted(index, total, rec, birthday, parsed)
	}
}

func (obs Observers) AttemptFinished(rec registrant.Record, attempt int, outcome finder.Outcome, elapsed time.Duration) {
	for _, o := range obs {
		o.AttemptFinished(rec, attempt, outcome, elapsed)
	}
}

func (obs Observers) RateLimitRetry(rec registrant.Record, retry, maxRetries int, wait time.Duration) {
	for _, o := range obs {
		o.RateLimitRetry(rec, retry, maxRetries, wait)
	}
}

func (obs Observers) RegistrantFinished(rec registrant.Record, entry Entry) {
	for _, o := range obs {
		o.RegistrantFinished(rec, entry)
	}
}

func (obs Observers) RunFinished(rs *ResultSet) {
	for _, o := range obs {
		o.RunFinished(rs)
	}
}
