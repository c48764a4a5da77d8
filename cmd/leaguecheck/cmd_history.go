package main

import (
	"fmt"
	"io"
	"time"

	"leaguecheck/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit     int
		runID     string
		historyDB string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived runs",
		Long: `Lists recent runs from the run history database, newest first. With
--run, prints every result of that run in processing order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("history-db") {
				a.cfg.History.Path = historyDB
			}
			if a.cfg.History.Path == "" {
				return &ExitError{Code: 1, Message: "no history database configured (set --history-db or LEAGUECHECK_HISTORY_DB)"}
			}

			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			defer store.Close()

			if runID != "" {
				return printRun(cmd, store, runID)
			}
			return printRuns(cmd, store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the results of one run")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "Run history database path")
	return cmd
}

func printRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-20s  %-12s  %6s  %6s\n", "RUN", "STARTED", "DIVISION", "PASSED", "FAILED")
	for _, r := range runs {
		division := r.Division
		if division == "" {
			division = "All"
		}
		status := ""
		if r.Cancelled {
			status = "  (interrupted)"
		}
		fmt.Fprintf(out, "%-36s  %-20s  %-12s  %6d  %6d%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), division, r.Passed, r.Failed, status)
	}
	return nil
}

func printRun(cmd *cobra.Command, store *history.Store, runID string) error {
	results, err := store.Results(cmd.Context(), runID)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	out := cmd.OutOrStdout()
	for _, r := range results {
		printResult(out, r)
	}
	return nil
}

func printResult(out io.Writer, r history.Result) {
	detail := r.Detail
	if r.Error != "" {
		detail = "error: " + r.Error
	}
	retries := ""
	if r.Retries > 0 {
		retries = fmt.Sprintf(" [%d retries]", r.Retries)
	}
	fmt.Fprintf(out, "%3d  %-4s  %s (%s) → %s%s\n", r.Seq, r.Verdict, r.Name, r.Sport, detail, retries)
}
