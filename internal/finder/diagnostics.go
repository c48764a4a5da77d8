package finder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"leaguecheck/internal/registrant"

	"go.uber.org/zap"
)

// PageDump is the page state recorded when a search never settles.
type PageDump struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// Capture is what a diagnostic capture managed to write.
type Capture struct {
	Screenshot string
	HTML       string
	Dump       PageDump
}

// Diagnostics writes screenshots and page dumps to a scratch directory.
// Nothing it does is allowed to affect the caller.
type Diagnostics struct {
	Dir     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewDiagnostics returns a capture sink rooted at dir (the OS temp dir when
// empty).
func NewDiagnostics(dir string, logger *zap.Logger) *Diagnostics {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnostics{Dir: dir, Timeout: 10 * time.Second, Logger: logger}
}

// Capture records a screenshot and page dump for rec. It swallows every
// failure, including panics from the page implementation, and only logs.
// A nil receiver does nothing.
func (d *Diagnostics) Capture(ctx context.Context, page Page, rec registrant.Record) (c Capture) {
	if d == nil {
		return c
	}
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("diagnostic capture panicked",
				zap.String("registrant", rec.Name()),
				zap.Any("panic", r))
		}
	}()

	// The run context may already be cancelled; capture anyway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
	defer cancel()

	base := filepath.Join(d.Dir, DebugBaseName(rec))

	if png, err := page.Screenshot(ctx); err != nil {
		d.Logger.Warn("screenshot failed", zap.String("registrant", rec.Name()), zap.Error(err))
	} else if err := writeFile(base+".png", png); err != nil {
		d.Logger.Warn("screenshot not saved", zap.String("path", base+".png"), zap.Error(err))
	} else {
		c.Screenshot = base + ".png"
		d.Logger.Info("screenshot saved", zap.String("path", c.Screenshot))
	}

	if err := page.Eval(ctx, dumpScript, &c.Dump); err != nil {
		d.Logger.Warn("page dump failed", zap.String("registrant", rec.Name()), zap.Error(err))
		return c
	}
	d.Logger.Info("page state at timeout",
		zap.String("registrant", rec.Name()),
		zap.String("title", c.Dump.Title),
		zap.String("content", truncate(c.Dump.Text, 200)+"..."))

	if c.Dump.HTML != "" {
		if err := writeFile(base+".html", []byte(c.Dump.HTML)); err != nil {
			d.Logger.Warn("page html not saved", zap.String("path", base+".html"), zap.Error(err))
		} else {
			c.HTML = base + ".html"
		}
	}
	return c
}

// DebugBaseName returns the file stem used for rec's diagnostics.
func DebugBaseName(rec registrant.Record) string {
	return fmt.Sprintf("debug-%s-%s", safeName(rec.FirstName), safeName(rec.LastName))
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
