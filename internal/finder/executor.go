// Package finder speaks the league finder's page protocol: it fills in and
// submits the search form, then reads the result regions back into an
// Outcome.
package finder

import (
	"context"
	"fmt"

	"leaguecheck/internal/registrant"

	"go.uber.org/zap"
)

// DefaultURL is the public league finder form.
const DefaultURL = "https://maps.littleleague.org/leaguefinder/"

// Page is the browser surface the finder drives. A single Page is shared by
// every registrant in a run.
type Page interface {
	// Navigate loads url and waits for the network to go idle.
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	// Fill replaces the value of a text input.
	Fill(ctx context.Context, selector, value string) error
	// SelectOption selects the option of a <select> whose value attribute
	// equals value.
	SelectOption(ctx context.Context, selector, value string) error
	// Eval runs a zero-argument JS function and decodes its JSON result
	// into out.
	Eval(ctx context.Context, js string, out any) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Executor performs one form submission. It never retries and never
// interprets the result.
type Executor struct {
	URL             string
	DefaultBirthday registrant.Birthday
	Logger          *zap.Logger
}

// NewExecutor returns an executor for the given finder URL. Records without a
// usable birthday are submitted with def because the form refuses to search
// without one.
func NewExecutor(url string, def registrant.Birthday, logger *zap.Logger) *Executor {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{URL: url, DefaultBirthday: def, Logger: logger}
}

// SportSelector returns the radio control for sport.
func SportSelector(sport registrant.Sport) string {
	switch sport {
	case registrant.SportSoftball, registrant.SportChallenger:
		return sportSelectorPrefix + string(sport)
	default:
		return sportSelectorPrefix + string(registrant.SportBaseball)
	}
}

// Submit fills in the form for rec and clicks search. Errors are returned
// wrapped with the step that failed.
func (e *Executor) Submit(ctx context.Context, page Page, rec registrant.Record) error {
	if err := page.Navigate(ctx, e.URL); err != nil {
		return fmt.Errorf("navigate to finder: %w", err)
	}

	sport := rec.SportOrDefault()
	if err := page.Click(ctx, SportSelector(sport)); err != nil {
		return fmt.Errorf("select sport %s: %w", sport, err)
	}

	if err := page.Fill(ctx, SelectorAddress, rec.QueryAddress()); err != nil {
		return fmt.Errorf("fill address: %w", err)
	}

	birthday, parsed := rec.BirthdayOr(e.DefaultBirthday)
	if parsed {
		e.Logger.Debug("birthday parsed",
			zap.String("birthday", rec.Birthday),
			zap.Int("month", birthday.Month),
			zap.String("year", birthday.Year))
	} else {
		e.Logger.Debug("no usable birthday, using default",
			zap.String("birthday", rec.Birthday),
			zap.Int("month", birthday.Month),
			zap.String("year", birthday.Year))
	}
	if err := page.SelectOption(ctx, SelectorBirthMonth, birthday.MonthValue()); err != nil {
		return fmt.Errorf("select birth month: %w", err)
	}
	if err := page.SelectOption(ctx, SelectorBirthYear, birthday.Year); err != nil {
		return fmt.Errorf("select birth year: %w", err)
	}

	if err := page.Click(ctx, SelectorSearch); err != nil {
		return fmt.Errorf("click search: %w", err)
	}
	return nil
}
