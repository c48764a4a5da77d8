// Package logging builds the process zap logger and hands out named
// per-category children.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, record loading
	CategoryBrowser Category = "browser" // Chrome lifecycle
	CategoryFinder  Category = "finder"  // Form submission, classification, diagnostics
	CategoryVerify  Category = "verify"  // Run sequencing, retries, verdicts
	CategoryReport  Category = "report"  // Results file, CI summary
	CategoryHistory Category = "history" // Run history database
	CategoryMetrics Category = "metrics" // Prometheus endpoint
)

// Options selects level and encoding. Verbose forces debug.
type Options struct {
	Level   string // debug, info, warn, error; empty means info
	Format  string // console or json; empty means console
	Verbose bool
}

// New builds the root logger. Output goes to stderr so it never interleaves
// with the transcript on stdout.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch opts.Format {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		config.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// For returns the child logger for a category. A nil base yields a no-op
// logger.
func For(base *zap.Logger, c Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(c))
}
