// Package browser owns the headless Chrome instance a verification run
// drives: one browser, one incognito context, one page.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// DefaultUserAgent is a current desktop Chrome on macOS.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var errNotStarted = errors.New("browser session not started")

// Config holds browser configuration.
type Config struct {
	DebuggerURL       string // Attach here instead of launching
	Bin               string // Chrome binary; empty lets the launcher find or fetch one
	Headless          bool
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		ViewportWidth:     1280,
		ViewportHeight:    720,
		Locale:            "en-US",
		NavigationTimeout: 30 * time.Second,
		ActionTimeout:     10 * time.Second,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth <= 0 {
		return 1280
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight <= 0 {
		return 720
	}
	return c.ViewportHeight
}

// GetNavigationTimeout returns the navigation timeout.
func (c Config) GetNavigationTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

// GetActionTimeout bounds element lookups and input.
func (c Config) GetActionTimeout() time.Duration {
	if c.ActionTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ActionTimeout
}

// Session is a single page in an incognito context. It satisfies
// finder.Page. Calls are serialized.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	launcher   *launcher.Launcher
	browser    *rod.Browser
	incognito  *rod.Browser
	page       *rod.Page
	controlURL string
}

// New returns an unstarted session.
func New(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start connects to an existing Chrome or launches a new one, then opens the
// page with the configured user agent, viewport and locale.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return nil
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		_ = s.cleanupLocked()
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser
	s.controlURL = controlURL

	incognito, err := browser.Incognito()
	if err != nil {
		_ = s.cleanupLocked()
		return fmt.Errorf("incognito context: %w", err)
	}
	s.incognito = incognito

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.cleanupLocked()
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.GetViewportWidth(),
		Height:            s.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.logger.Warn("failed to set viewport", zap.Error(err))
	}

	if s.cfg.UserAgent != "" || s.cfg.Locale != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      coalesce(s.cfg.UserAgent, DefaultUserAgent),
			AcceptLanguage: s.cfg.Locale,
		}); err != nil {
			s.logger.Warn("failed to set user agent", zap.Error(err))
		}
	}
	if s.cfg.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: s.cfg.Locale}).Call(page); err != nil {
			s.logger.Warn("failed to set locale", zap.Error(err))
		}
	}

	s.logger.Info("browser session started",
		zap.String("control_url", controlURL),
		zap.Bool("headless", s.cfg.Headless),
		zap.Bool("launched", s.launcher != nil))
	return nil
}

// Close releases the page, context and browser. It is safe to call on an
// unstarted or already closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cleanupLocked()
	if err != nil {
		s.logger.Warn("browser close failed", zap.Error(err))
	} else {
		s.logger.Debug("browser session closed")
	}
	return err
}

func (s *Session) cleanupLocked() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		s.page = nil
	}
	if s.incognito != nil {
		if err := s.incognito.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close incognito context: %w", err))
		}
		s.incognito = nil
	}
	if s.browser != nil {
		// Only close a browser this session launched; an attached one
		// belongs to someone else.
		if s.launcher != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	s.controlURL = ""
	return errors.Join(errs...)
}

// ControlURL returns the DevTools WebSocket URL, empty when not started.
func (s *Session) ControlURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlURL
}

func (s *Session) pageFor(ctx context.Context, timeout time.Duration) (*rod.Page, func(), error) {
	if s.page == nil {
		return nil, func() {}, errNotStarted
	}
	p := s.page.Context(ctx).Timeout(timeout)
	return p, func() { p.CancelTimeout() }, nil
}

// Navigate loads url and waits for the network to go idle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetNavigationTimeout())
	defer done()
	if err != nil {
		return err
	}
	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	return settled(page.GetContext(), url)
}

// settled reports a navigation whose idle wait ended by timeout or
// cancellation; WaitNavigation returns silently in both cases.
func settled(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigate %s: waiting for network idle: %w", url, err)
	}
	return nil
}

// Click clicks an element.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetActionTimeout())
	defer done()
	if err != nil {
		return err
	}
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Fill replaces the text of an input.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetActionTimeout())
	defer done()
	if err != nil {
		return err
	}
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	return el.Input(value)
}

// SelectOption selects the option whose value attribute equals value.
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetActionTimeout())
	defer done()
	if err != nil {
		return err
	}
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	option := fmt.Sprintf(`option[value="%s"]`, strings.ReplaceAll(value, `"`, `\"`))
	if err := el.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("select %s in %s: %w", value, selector, err)
	}
	return nil
}

// Eval runs a zero-argument function in the page and decodes its result.
func (s *Session) Eval(ctx context.Context, js string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetActionTimeout())
	defer done()
	if err != nil {
		return err
	}
	res, err := page.Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, done, err := s.pageFor(ctx, s.cfg.GetNavigationTimeout())
	defer done()
	if err != nil {
		return nil, err
	}
	return page.Screenshot(true, nil)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
