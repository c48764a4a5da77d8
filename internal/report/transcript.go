package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
	"leaguecheck/internal/verify"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#8BC34A")
	failColor    = lipgloss.Color("#e53935")
	warnColor    = lipgloss.Color("#FFC107")
	mutedColor   = lipgloss.Color("#8a94a6")
)

type styles struct {
	Banner lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Banner: r.NewStyle().Bold(true),
		Pass:   r.NewStyle().Foreground(successColor).Bold(true),
		Fail:   r.NewStyle().Foreground(failColor).Bold(true),
		Warn:   r.NewStyle().Foreground(warnColor),
		Muted:  r.NewStyle().Foreground(mutedColor),
		Bold:   r.NewStyle().Bold(true),
	}
}

// Transcript prints human-readable run progress. It implements
// verify.Observer. Colors are dropped when w is not a terminal.
type Transcript struct {
	verify.NopObserver
	w     io.Writer
	style styles
}

// NewTranscript returns a transcript writing to w.
func NewTranscript(w io.Writer) *Transcript {
	return &Transcript{w: w, style: newStyles(lipgloss.NewRenderer(w))}
}

func (t *Transcript) printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...)
}

func rule() string { return strings.Repeat("=", 60) }

// Loading announces the record source.
func (t *Transcript) Loading(source string) {
	t.printf("Loading data from %s...\n", source)
}

// Filtered reports the division filter.
func (t *Transcript) Filtered(division string, kept, total int) {
	t.printf("Filtered to division %q: %d of %d registrations\n", division, kept, total)
}

// ResultsSaved reports where the results file went.
func (t *Transcript) ResultsSaved(path string) {
	t.printf("Results saved to %s\n", path)
}

func (t *Transcript) RunStarted(info verify.RunInfo, total int) {
	t.printf("\n%s\n", t.style.Banner.Render(fmt.Sprintf("Verifying %d registrations against %s", total, info.League)))
	t.printf("%s\n", rule())
}

func (t *Transcript) RegistrantStarted(index, total int, rec registrant.Record, birthday registrant.Birthday, parsed bool) {
	t.printf("\n%s %s\n", t.style.Bold.Render("Searching:"), rec.Name())
	t.printf("  Address: %s\n", rec.QueryAddress())
	if parsed {
		t.printf("  Birthday: %s → month=%s, year=%s\n", rec.Birthday, birthday.MonthValue(), birthday.Year)
	} else {
		t.printf("  %s\n", t.style.Muted.Render("No birthday provided, using default"))
	}
}

func (t *Transcript) AttemptFinished(_ registrant.Record, attempt int, outcome finder.Outcome, elapsed time.Duration) {
	t.printf("  %s\n", t.style.Muted.Render(fmt.Sprintf("Attempt %d: %s (%s)", attempt, outcome.Description(), elapsed.Round(time.Millisecond))))
}

func (t *Transcript) RateLimitRetry(_ registrant.Record, retry, maxRetries int, wait time.Duration) {
	t.printf("  %s\n", t.style.Warn.Render(fmt.Sprintf("Rate limited, waiting %s before retry %d/%d...", wait, retry, maxRetries)))
}

func (t *Transcript) RegistrantFinished(_ registrant.Record, e verify.Entry) {
	switch {
	case e.Err != "":
		t.printf("%s %s → %s\n", t.style.Fail.Render("✗ ERROR:"), e.Name, e.Err)
	case e.Verdict == verify.VerdictPass:
		t.printf("%s %s\n", t.style.Pass.Render("✓ PASS:"), e.Name)
	default:
		t.printf("%s %s → %s\n", t.style.Fail.Render("✗ FAIL:"), e.Name, e.Detail())
	}
}

func (t *Transcript) RunFinished(rs *verify.ResultSet) {
	pass, fail := rs.Pass(), rs.Fail()
	t.printf("\n%s\n", rule())
	t.printf("\n%s\n\n", t.style.Banner.Render(fmt.Sprintf("RESULTS: %d passed, %d failed", len(pass), len(fail))))
	if rs.Info().Cancelled {
		t.printf("%s\n\n", t.style.Warn.Render("Run interrupted; results are partial."))
	}
	if len(fail) == 0 {
		return
	}
	t.printf("%s\n", t.style.Fail.Render("FAILED REGISTRATIONS:"))
	for _, e := range fail {
		t.printf("  - %s: %s\n", e.Name, e.Detail())
	}
	t.printf("\n")
}
