//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"leaguecheck/internal/browser"
	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"

	"github.com/stretchr/testify/require"
)

// finderPage mimics the league finder form. Addresses containing "Nowhere"
// fail geocoding; everything else resolves to a single league after a delay.
const finderPage = `<!doctype html>
<html><head><title>League Finder</title></head><body>
<input type="radio" name="sport" id="sport-type-input-baseball">
<input type="radio" name="sport" id="sport-type-input-softball">
<input type="radio" name="sport" id="sport-type-input-challenger">
<input id="address-input" type="text" value="stale text">
<select id="birth-month-input">
  <option value="">Month</option><option value="1">Jan</option><option value="3">Mar</option>
</select>
<select id="birth-year-input">
  <option value="">Year</option><option value="2015">2015</option><option value="2016">2016</option>
</select>
<button id="search-button" onclick="search()">Search</button>
<h2 data-role="league-result-league-name-display"></h2>
<div id="no-results-row" style="display:none">No leagues</div>
<div id="geocoding-failure-message-row" style="display:none">Address not found</div>
<div id="geocoding-precision-too-low-message-row" style="display:none">Too vague</div>
<div id="league-lookup-failure-message-row" style="display:none">Lookup failed</div>
<script>
function search() {
  const address = document.getElementById("address-input").value;
  setTimeout(() => {
    if (address.includes("Nowhere")) {
      document.getElementById("geocoding-failure-message-row").style.display = "block";
      return;
    }
    document.querySelector('[data-role="league-result-league-name-display"]').textContent = "WALNUT CREEK LL";
  }, 300);
}
</script>
</body></html>`

// busyPage keeps a request open so the network never goes idle.
const busyPage = `<!doctype html>
<html><body><script>fetch("/hang");</script></body></html>`

func startSession(t *testing.T) (*browser.Session, string) {
	t.Helper()
	return startSessionWith(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, finderPage)
	}), 10*time.Second)
}

func startSessionWith(t *testing.T, h http.Handler, navTimeout time.Duration) (*browser.Session, string) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cfg := browser.DefaultConfig()
	cfg.Bin = os.Getenv("CHROME_BIN")
	cfg.NavigationTimeout = navTimeout
	cfg.ActionTimeout = 5 * time.Second

	s := browser.New(cfg, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx), "Failed to start browser")
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("Close error: %v", err)
		}
	})
	return s, ts.URL
}

func TestSession_FinderRoundTrip_Integration(t *testing.T) {
	s, url := startSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	exec := finder.NewExecutor(url, registrant.Birthday{Month: 1, Year: "2015"}, nil)
	classifier := finder.NewClassifier(5*time.Second, 100*time.Millisecond, finder.NewDiagnostics(t.TempDir(), nil), nil)

	rec := registrant.Record{
		FirstName: "Ada", LastName: "Tester",
		Address: "1 Main St", City: "Walnut Creek", State: "CA", Zip: "94596",
		Sport: registrant.SportBaseball, Birthday: "03/10/2016",
	}
	require.NoError(t, exec.Submit(ctx, s, rec))
	require.Equal(t, finder.SingleLeague("WALNUT CREEK LL"), classifier.Await(ctx, s, rec))

	var form struct {
		Address string `json:"address"`
		Month   string `json:"month"`
		Year    string `json:"year"`
		Sport   bool   `json:"sport"`
	}
	require.NoError(t, s.Eval(ctx, `() => ({
		address: document.getElementById("address-input").value,
		month: document.getElementById("birth-month-input").value,
		year: document.getElementById("birth-year-input").value,
		sport: document.getElementById("sport-type-input-baseball").checked,
	})`, &form))
	require.Equal(t, "1 Main St, Walnut Creek, CA 94596", form.Address)
	require.Equal(t, "3", form.Month)
	require.Equal(t, "2016", form.Year)
	require.True(t, form.Sport)

	rec.Address = "1 Nowhere Rd"
	require.NoError(t, exec.Submit(ctx, s, rec))
	require.Equal(t, finder.Of(finder.KindAddressNotFound), classifier.Await(ctx, s, rec))

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, png)
}

func TestSession_NavigateIdleTimeout_Integration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hang", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, busyPage)
	})
	s, url := startSessionWith(t, mux, 2*time.Second)

	err := s.Navigate(context.Background(), url)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "waiting for network idle")
}
