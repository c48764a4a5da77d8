package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	Headless          bool   `yaml:"headless"`
	Bin               string `yaml:"bin"`          // Chrome binary; empty lets rod find or download one
	DebuggerURL       string `yaml:"debugger_url"` // attach to a running Chrome instead of launching
	UserAgent         string `yaml:"user_agent"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	Locale            string `yaml:"locale"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	ActionTimeout     string `yaml:"action_timeout"`
}

// DefaultBrowserConfig returns the browser settings the finder accepts.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:     1280,
		ViewportHeight:    720,
		Locale:            "en-US",
		NavigationTimeout: "30s",
		ActionTimeout:     "10s",
	}
}

// GetNavigationTimeout returns the page load timeout.
func (b BrowserConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(b.NavigationTimeout, 30*time.Second)
}

// GetActionTimeout returns the element lookup and input timeout.
func (b BrowserConfig) GetActionTimeout() time.Duration {
	return parseDuration(b.ActionTimeout, 10*time.Second)
}

// Validate checks the browser settings. The user agent must look like a
// desktop browser; the finder serves a different page to bots and phones.
func (b BrowserConfig) Validate() error {
	var errs []error

	if b.UserAgent != "" {
		ua := useragent.New(b.UserAgent)
		name, _ := ua.Browser()
		switch {
		case ua.Bot():
			errs = append(errs, fmt.Errorf("browser.user_agent %q identifies as a bot", b.UserAgent))
		case ua.Mobile():
			errs = append(errs, fmt.Errorf("browser.user_agent %q is a mobile browser", b.UserAgent))
		case strings.TrimSpace(name) == "":
			errs = append(errs, fmt.Errorf("browser.user_agent %q is not a recognizable browser", b.UserAgent))
		}
	}
	if b.ViewportWidth < 0 || b.ViewportHeight < 0 {
		errs = append(errs, fmt.Errorf("browser viewport must be non-negative, got %dx%d", b.ViewportWidth, b.ViewportHeight))
	}
	for _, d := range []struct{ name, value string }{
		{"browser.navigation_timeout", b.NavigationTimeout},
		{"browser.action_timeout", b.ActionTimeout},
	} {
		if d.value == "" {
			continue
		}
		if err := validDuration(d.name, d.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
