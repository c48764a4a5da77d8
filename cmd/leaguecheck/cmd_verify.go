package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"leaguecheck/internal/browser"
	"leaguecheck/internal/config"
	"leaguecheck/internal/finder"
	"leaguecheck/internal/history"
	"leaguecheck/internal/logging"
	"leaguecheck/internal/metrics"
	"leaguecheck/internal/registrant"
	"leaguecheck/internal/registrant/sheets"
	"leaguecheck/internal/report"
	"leaguecheck/internal/verify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pageSession is a started browser page owned by one run.
type pageSession interface {
	finder.Page
	Start(ctx context.Context) error
	Close() error
}

// newPageSession is replaced in tests.
var newPageSession = func(cfg browser.Config, logger *zap.Logger) pageSession {
	return browser.New(cfg, logger)
}

type verifyFlags struct {
	league        string
	division      string
	results       string
	historyDB     string
	metricsAddr   string
	headless      bool
	screenshotDir string
}

func newVerifyCmd(a *app) *cobra.Command {
	var f verifyFlags
	cmd := &cobra.Command{
		Use:   "verify [data-file]",
		Short: "Verify every registrant against the league finder",
		Long: `Loads registrants, submits each one to the league finder with a pacing
delay between submissions, and records PASS when the finder names the expected
league. Rate-limited submissions are retried after a backoff.

The data file defaults to data/kids-2025.json and is ignored when a Google
Sheet is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.DataFile = args[0]
			}
			applyVerifyFlags(cmd, a.cfg, f)
			return runVerify(cmd, a)
		},
	}

	cmd.Flags().StringVar(&f.league, "league", "", "Expected league name (default WALNUT CREEK LL)")
	cmd.Flags().StringVar(&f.division, "division", "", "Only verify registrants in this division")
	cmd.Flags().StringVar(&f.results, "results", "", "Results file path (default results.json)")
	cmd.Flags().StringVar(&f.historyDB, "history-db", "", "Archive the run in this SQLite database")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run Chrome headless")
	cmd.Flags().StringVar(&f.screenshotDir, "screenshot-dir", "", "Directory for timeout screenshots and page dumps")
	return cmd
}

// applyVerifyFlags lets explicitly set flags win over file and environment.
func applyVerifyFlags(cmd *cobra.Command, cfg *config.Config, f verifyFlags) {
	flags := cmd.Flags()
	if flags.Changed("league") {
		cfg.LeagueName = f.league
	}
	if flags.Changed("division") {
		cfg.Division = f.division
	}
	if flags.Changed("results") {
		cfg.ResultsFile = f.results
	}
	if flags.Changed("history-db") {
		cfg.History.Path = f.historyDB
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if flags.Changed("screenshot-dir") {
		cfg.ScreenshotDir = f.screenshotDir
	}
}

func runVerify(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	cfg := a.cfg
	bootLog := logging.For(a.logger, logging.CategoryBoot)

	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("invalid configuration: %v", err)}
	}

	transcript := report.NewTranscript(cmd.OutOrStdout())

	source, err := openSource(ctx, cfg)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	transcript.Loading(source.Describe())
	records, err := source.Load(ctx)
	if err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("load registrants: %v", err)}
	}
	if cfg.Division != "" {
		total := len(records)
		records = registrant.FilterDivision(records, cfg.Division)
		transcript.Filtered(cfg.Division, len(records), total)
	}
	bootLog.Info("registrants loaded",
		zap.String("source", source.Describe()),
		zap.Int("count", len(records)))

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return &ExitError{Code: 1, Message: fmt.Sprintf("open run history: %v", err)}
		}
		defer store.Close()
	}

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)

	// Bind before the browser starts so a busy port fails the run up front.
	var (
		srv *metrics.Server
		ln  net.Listener
	)
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, reg, logging.For(a.logger, logging.CategoryMetrics))
		ln, err = srv.Listen()
		if err != nil {
			return &ExitError{Code: 1, Message: fmt.Sprintf("metrics server: %v", err)}
		}
		defer ln.Close()
	}

	session := newPageSession(browserConfig(cfg.Browser), logging.For(a.logger, logging.CategoryBrowser))
	if err := session.Start(ctx); err != nil {
		session.Close()
		return &ExitError{Code: 1, Message: fmt.Sprintf("start browser: %v", err)}
	}
	defer session.Close()

	runner := newRunner(cfg, session, verify.Observers{transcript, collectors}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()
	if srv != nil {
		g.Go(func() error { return srv.Serve(serverCtx, ln) })
	}

	var (
		rs     *verify.ResultSet
		runErr error
	)
	g.Go(func() error {
		defer stopServer()
		rs, runErr = runner.Run(gctx, records)
		return nil
	})
	serveErr := g.Wait()
	if rs == nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("run aborted: %v", errors.Join(runErr, serveErr))}
	}

	if err := finishRun(ctx, cfg, rs, store, transcript, logging.For(a.logger, logging.CategoryReport)); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}

	switch {
	case serveErr != nil:
		return &ExitError{Code: 1, Message: serveErr.Error()}
	case runErr != nil:
		return &ExitError{Code: 1, Message: runErr.Error()}
	case len(rs.Fail()) > 0:
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d registrations failed verification", len(rs.Fail()), len(rs.Entries()))}
	}
	return nil
}

// finishRun writes the run's outputs. It runs even after an interrupt so
// partial results are kept.
func finishRun(ctx context.Context, cfg *config.Config, rs *verify.ResultSet, store *history.Store, transcript *report.Transcript, logger *zap.Logger) error {
	if err := report.WriteResults(cfg.ResultsFile, rs); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	transcript.ResultsSaved(cfg.ResultsFile)

	if cfg.SummaryFile != "" {
		if err := report.AppendSummary(cfg.SummaryFile, cfg.Division, len(rs.Pass()), len(rs.Fail())); err != nil {
			logger.Warn("could not write step summary", zap.String("path", cfg.SummaryFile), zap.Error(err))
		}
	}

	if store != nil {
		if err := store.SaveRun(context.WithoutCancel(ctx), rs); err != nil {
			logger.Warn("could not archive run", zap.String("path", store.Path()), zap.Error(err))
		} else {
			logger.Info("run archived", zap.String("run_id", rs.Info().ID), zap.String("path", store.Path()))
		}
	}
	return nil
}

// openSource prefers the spreadsheet when one is configured.
func openSource(ctx context.Context, cfg *config.Config) (registrant.Source, error) {
	if cfg.Sheets.Enabled() {
		src, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:       cfg.Sheets.ID,
			Tab:                 cfg.Sheets.Tab,
			ServiceAccountEmail: cfg.Sheets.ServiceAccountEmail,
			PrivateKey:          cfg.Sheets.PrivateKey,
		})
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		return src, nil
	}
	return registrant.NewFileSource(cfg.DataFile)
}

func browserConfig(b config.BrowserConfig) browser.Config {
	return browser.Config{
		DebuggerURL:       b.DebuggerURL,
		Bin:               b.Bin,
		Headless:          b.Headless,
		UserAgent:         b.UserAgent,
		ViewportWidth:     b.ViewportWidth,
		ViewportHeight:    b.ViewportHeight,
		Locale:            b.Locale,
		NavigationTimeout: b.GetNavigationTimeout(),
		ActionTimeout:     b.GetActionTimeout(),
	}
}

func newRunner(cfg *config.Config, page finder.Page, obs verify.Observer, logger *zap.Logger) *verify.Runner {
	finderLog := logging.For(logger, logging.CategoryFinder)
	verifyLog := logging.For(logger, logging.CategoryVerify)
	def := registrant.Birthday{Month: cfg.DefaultBirthMonth, Year: cfg.DefaultBirthYear}

	diag := finder.NewDiagnostics(cfg.ScreenshotDir, finderLog)
	return verify.NewRunner(verify.RunnerConfig{
		Page:      page,
		Submitter: finder.NewExecutor(cfg.FinderURL, def, finderLog),
		Awaiter:   finder.NewClassifier(cfg.GetResultTimeout(), cfg.GetPollInterval(), diag, finderLog),
		Retrier: verify.NewRetrier(verify.BackoffConfig{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.GetRateLimitBackoff(),
		}, nil),
		League:          cfg.LeagueName,
		Division:        cfg.Division,
		DefaultBirthday: def,
		Pacing:          cfg.GetPacingDelay(),
		Observer:        obs,
		Logger:          verifyLog,
	})
}
