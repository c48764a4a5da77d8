package main

import (
	"fmt"
	"os"

	"leaguecheck/internal/finder"
	"leaguecheck/internal/verify"

	"github.com/spf13/cobra"
)

func newReclassifyCmd(a *app) *cobra.Command {
	var league string
	cmd := &cobra.Command{
		Use:   "reclassify <file.html>...",
		Short: "Classify saved finder pages without a browser",
		Long: `Runs the outcome classifier over HTML page dumps written by the
diagnostics capture (debug-<name>.html) and prints the outcome and verdict
for each file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("league") {
				a.cfg.LeagueName = league
			}
			return runReclassify(cmd, a, args)
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "Expected league name (default WALNUT CREEK LL)")
	return cmd
}

func runReclassify(cmd *cobra.Command, a *app, paths []string) error {
	out := cmd.OutOrStdout()
	unreadable := 0
	for _, path := range paths {
		outcome, err := classifyFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: error: %v\n", path, err)
			unreadable++
			continue
		}
		verdict := verify.Judge(outcome, a.cfg.LeagueName)
		fmt.Fprintf(out, "%s: %s (%s) %s\n", path, outcome.Description(), outcome.Kind, verdict)
	}
	if unreadable > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d files could not be read", unreadable, len(paths))}
	}
	return nil
}

func classifyFile(path string) (finder.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return finder.Outcome{}, err
	}
	defer f.Close()

	regions, err := finder.RegionsFromHTML(f)
	if err != nil {
		return finder.Outcome{}, err
	}
	return finder.Classify(regions), nil
}
