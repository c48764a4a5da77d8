package verify

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
)

// ErrSealed is returned when appending to or re-sealing a sealed result set.
var ErrSealed = errors.New("result set is sealed")

// Verdict is the pass/fail judgement for one registrant.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Judge computes the verdict for a final outcome against the expected league.
func Judge(o finder.Outcome, expectedLeague string) Verdict {
	if o.MatchesLeague(expectedLeague) {
		return VerdictPass
	}
	return VerdictFail
}

// Entry is one registrant's result. Err is set only for execution errors;
// in that case Outcome is meaningless.
type Entry struct {
	Seq     int
	Name    string
	Address string
	Sport   registrant.Sport
	Verdict Verdict
	Outcome finder.Outcome
	Retries int
	Err     string
}

// Detail is the human-readable result: the outcome description, or the
// error message for execution errors.
func (e Entry) Detail() string {
	if e.Err != "" {
		return e.Err
	}
	return e.Outcome.Description()
}

// RunInfo is the metadata recorded for a run.
type RunInfo struct {
	ID         string
	League     string
	Division   string
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
}

// ResultSet is the append-only, ordered record of a run. It is sealed once
// at the end of the run.
type ResultSet struct {
	mu      sync.Mutex
	info    RunInfo
	entries []Entry
	sealed  bool
}

// NewResultSet returns an empty result set for a run.
func NewResultSet(info RunInfo) *ResultSet {
	return &ResultSet{info: info}
}

// Append adds e, numbering it in arrival order.
func (rs *ResultSet) Append(e Entry) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.sealed {
		return ErrSealed
	}
	e.Seq = len(rs.entries) + 1
	rs.entries = append(rs.entries, e)
	return nil
}

// Seal stamps the finish time and freezes the set. Sealing twice fails.
func (rs *ResultSet) Seal(finishedAt time.Time, cancelled bool) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.sealed {
		return ErrSealed
	}
	rs.sealed = true
	rs.info.FinishedAt = finishedAt
	rs.info.Cancelled = cancelled
	return nil
}

// Sealed reports whether Seal has been called.
func (rs *ResultSet) Sealed() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.sealed
}

// Info returns the run metadata.
func (rs *ResultSet) Info() RunInfo {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.info
}

// Entries returns every entry in processing order.
func (rs *ResultSet) Entries() []Entry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]Entry(nil), rs.entries...)
}

// Pass returns the passing entries in processing order.
func (rs *ResultSet) Pass() []Entry { return rs.filter(VerdictPass) }

// Fail returns the failing entries in processing order.
func (rs *ResultSet) Fail() []Entry { return rs.filter(VerdictFail) }

func (rs *ResultSet) filter(v Verdict) []Entry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var out []Entry
	for _, e := range rs.entries {
		if e.Verdict == v {
			out = append(out, e)
		}
	}
	return out
}

type runJSON struct {
	ID         string     `json:"id"`
	League     string     `json:"league"`
	Division   string     `json:"division,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Cancelled  bool       `json:"cancelled,omitempty"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
}

type entryJSON struct {
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Sport       registrant.Sport `json:"sport"`
	FoundLeague string           `json:"foundLeague,omitempty"`
	Error       string           `json:"error,omitempty"`
	Outcome     string           `json:"outcome,omitempty"`
	Retries     int              `json:"retries,omitempty"`
}

type resultsJSON struct {
	Run  runJSON     `json:"run"`
	Pass []entryJSON `json:"pass"`
	Fail []entryJSON `json:"fail"`
}

// MarshalJSON writes the results file layout: run metadata followed by the
// pass and fail lists.
func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	info := rs.Info()
	pass, fail := rs.Pass(), rs.Fail()

	out := resultsJSON{
		Run: runJSON{
			ID:        info.ID,
			League:    info.League,
			Division:  info.Division,
			StartedAt: info.StartedAt,
			Cancelled: info.Cancelled,
			Passed:    len(pass),
			Failed:    len(fail),
		},
		Pass: make([]entryJSON, 0, len(pass)),
		Fail: make([]entryJSON, 0, len(fail)),
	}
	if !info.FinishedAt.IsZero() {
		out.Run.FinishedAt = &info.FinishedAt
	}
	for _, e := range pass {
		out.Pass = append(out.Pass, toEntryJSON(e))
	}
	for _, e := range fail {
		out.Fail = append(out.Fail, toEntryJSON(e))
	}
	return json.Marshal(out)
}

func toEntryJSON(e Entry) entryJSON {
	j := entryJSON{Name: e.Name, Address: e.Address, Sport: e.Sport, Retries: e.Retries}
	if e.Err != "" {
		j.Error = e.Err
		return j
	}
	j.FoundLeague = e.Outcome.Description()
	j.Outcome = e.Outcome.Kind.String()
	return j
}
