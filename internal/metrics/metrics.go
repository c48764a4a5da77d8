// Package metrics exports run progress as Prometheus collectors.
package metrics

import (
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
	"leaguecheck/internal/verify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records verification progress. It implements verify.Observer.
type Metrics struct {
	verify.NopObserver

	AttemptsTotal         *prometheus.CounterVec
	RegistrantsTotal      *prometheus.CounterVec
	RateLimitRetriesTotal prometheus.Counter
	AttemptDuration       prometheus.Histogram
	RunRegistrants        prometheus.Gauge
	RunsTotal             *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaguecheck_attempts_total",
			Help: "Total number of finder submissions by classified outcome",
		}, []string{"outcome"}),
		RegistrantsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaguecheck_registrants_total",
			Help: "Total number of verified registrants by verdict",
		}, []string{"verdict"}),
		RateLimitRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaguecheck_rate_limit_retries_total",
			Help: "Total number of backoff waits taken after a rate-limit outcome",
		}),
		AttemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leaguecheck_attempt_duration_seconds",
			Help:    "Duration of one submission from navigation to classification",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 60},
		}),
		RunRegistrants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leaguecheck_run_registrants",
			Help: "Number of registrants in the current run",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaguecheck_runs_total",
			Help: "Total number of finished runs by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) RunStarted(_ verify.RunInfo, total int) {
	m.RunRegistrants.Set(float64(total))
}

func (m *Metrics) AttemptFinished(_ registrant.Record, _ int, outcome finder.Outcome, elapsed time.Duration) {
	m.AttemptsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	m.AttemptDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimitRetry(registrant.Record, int, int, time.Duration) {
	m.RateLimitRetriesTotal.Inc()
}

func (m *Metrics) RegistrantFinished(_ registrant.Record, e verify.Entry) {
	verdict := string(e.Verdict)
	if e.Err != "" {
		verdict = "error"
	}
	m.RegistrantsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) RunFinished(rs *verify.ResultSet) {
	status := "completed"
	if rs.Info().Cancelled {
		status = "cancelled"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}
