package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
	"leaguecheck/internal/verify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ verify.Observer = (*Metrics)(nil)

func TestMetrics_ObserverEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	rec := registrant.Record{FirstName: "Ada", LastName: "Tester"}

	m.RunStarted(verify.RunInfo{ID: "r"}, 3)
	m.AttemptFinished(rec, 1, finder.Of(finder.KindRateLimited), 2*time.Second)
	m.RateLimitRetry(rec, 1, 3, time.Minute)
	m.AttemptFinished(rec, 2, finder.SingleLeague("WALNUT CREEK LL"), 3*time.Second)
	m.RegistrantFinished(rec, verify.Entry{Verdict: verify.VerdictPass})
	m.RegistrantFinished(rec, verify.Entry{Verdict: verify.VerdictFail})
	m.RegistrantFinished(rec, verify.Entry{Verdict: verify.VerdictFail, Err: "boom"})

	rs := verify.NewResultSet(verify.RunInfo{ID: "r"})
	require.NoError(t, rs.Seal(time.Now(), true))
	m.RunFinished(rs)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunRegistrants))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("single_league")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitRetriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrantsTotal.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrantsTotal.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrantsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("cancelled")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AttemptDuration))
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RateLimitRetriesTotal.Inc()

	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "leaguecheck_rate_limit_retries_total 1")
}

func TestServer_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), prometheus.NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	s := NewServer("not-an-address", prometheus.NewRegistry(), nil)
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "listen on not-an-address"))
}

func TestServer_ListenAddressInUse(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer held.Close()

	s := NewServer(held.Addr().String(), prometheus.NewRegistry(), nil)
	ln, err := s.Listen()
	require.Error(t, err)
	assert.Nil(t, ln)
	assert.Contains(t, err.Error(), "listen on "+held.Addr().String())
}
