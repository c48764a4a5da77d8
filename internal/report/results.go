// Package report writes a finished run out: the results file, the CI step
// summary and the console transcript.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"leaguecheck/internal/verify"
)

// WriteResults writes rs as indented JSON to path. The file is replaced
// atomically so a reader never sees a partial document.
func WriteResults(path string, rs *verify.ResultSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("create temp results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}

// AppendSummary appends the counts-only CI summary for a run to path. No
// registrant details are written.
func AppendSummary(path, division string, passed, failed int) error {
	if division == "" {
		division = "All"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open step summary: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "## %s\n\n✅ **Passed:** %d\n❌ **Failed:** %d\n", division, passed, failed); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}
	return f.Close()
}
