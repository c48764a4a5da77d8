package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/registrant"
	"leaguecheck/internal/verify"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sealedRun(t *testing.T, id string, started time.Time) *verify.ResultSet {
	t.Helper()
	rs := verify.NewResultSet(verify.RunInfo{ID: id, League: "WALNUT CREEK LL", Division: "Majors", StartedAt: started})
	require.NoError(t, rs.Append(verify.Entry{
		Name: "Ada Tester", Address: "1 Main St", Sport: registrant.SportBaseball,
		Verdict: verify.VerdictPass, Outcome: finder.SingleLeague("WALNUT CREEK LL"), Retries: 1,
	}))
	require.NoError(t, rs.Append(verify.Entry{
		Name: "Bob Tester", Address: "2 Oak St", Sport: registrant.SportSoftball,
		Verdict: verify.VerdictFail, Err: "navigate to finder: timeout",
	}))
	require.NoError(t, rs.Seal(started.Add(2*time.Minute), false))
	return rs
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, sealedRun(t, "run-1", started)))

	runs, err := store.RecentRuns(ctx, 5)
	require.NoError(t, err)
	want := []Run{{
		ID: "run-1", League: "WALNUT CREEK LL", Division: "Majors",
		StartedAt: started, FinishedAt: started.Add(2 * time.Minute),
		Passed: 1, Failed: 1,
	}}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("RecentRuns mismatch (-want +got):\n%s", diff)
	}

	results, err := store.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Seq: 1, Name: "Ada Tester", Address: "1 Main St", Sport: "baseball",
		Verdict: "pass", Outcome: "single_league", Detail: "WALNUT CREEK LL", Retries: 1,
	}, results[0])
	assert.Equal(t, "navigate to finder: timeout", results[1].Error)
	assert.Empty(t, results[1].Outcome)
}

func TestStore_RecentRunsOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(ctx, sealedRun(t, id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Results(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	unsealed := verify.NewResultSet(verify.RunInfo{ID: "open"})
	assert.Error(t, store.SaveRun(ctx, unsealed))

	rs := sealedRun(t, "dup", time.Now())
	require.NoError(t, store.SaveRun(ctx, rs))
	assert.Error(t, store.SaveRun(ctx, rs), "run ids are unique")

	results, err := store.Results(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, results, 2, "failed duplicate insert rolls back")
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, sealedRun(t, "persisted", time.Now())))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())

	runs, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].ID)
}
