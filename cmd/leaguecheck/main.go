package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"leaguecheck/internal/config"
	"leaguecheck/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExitError carries the process exit status for a failed command.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "leaguecheck",
		Short: "Verify registrant addresses against the Little League finder",
		Long: `leaguecheck submits each registrant's address, sport and birthday to the
public league finder and checks that it resolves to the expected league.

Registrants come from a Google Sheet (GOOGLE_SHEETS_ID) or a local JSON file.
Results are written to a JSON file; the exit status is 1 if any registrant
failed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			a.cfg = cfg

			logger, err := logging.New(logging.Options{
				Level:   cfg.Logging.Level,
				Format:  cfg.Logging.Format,
				Verbose: a.verbose,
			})
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			a.logger = logger
			logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
				zap.String("config", a.configPath),
				zap.String("league", cfg.LeagueName))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")

	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newReclassifyCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	return rootCmd
}

// execute runs the command tree and maps the result to an exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
