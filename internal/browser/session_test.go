package browser_test

import (
	"context"
	"testing"
	"time"

	"leaguecheck/internal/browser"
	"leaguecheck/internal/finder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ finder.Page = (*browser.Session)(nil)

func TestConfigDefaults(t *testing.T) {
	cfg := browser.DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, browser.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, "en-US", cfg.Locale)

	var zero browser.Config
	assert.Equal(t, 1280, zero.GetViewportWidth())
	assert.Equal(t, 720, zero.GetViewportHeight())
	assert.Equal(t, 30*time.Second, zero.GetNavigationTimeout())
	assert.Equal(t, 10*time.Second, zero.GetActionTimeout())

	custom := browser.Config{ViewportWidth: 800, ActionTimeout: time.Second}
	assert.Equal(t, 800, custom.GetViewportWidth())
	assert.Equal(t, time.Second, custom.GetActionTimeout())
}

func TestSession_NotStarted(t *testing.T) {
	s := browser.New(browser.DefaultConfig(), nil)
	ctx := context.Background()

	require.Error(t, s.Navigate(ctx, "about:blank"))
	require.Error(t, s.Click(ctx, "#x"))
	require.Error(t, s.Fill(ctx, "#x", "y"))
	require.Error(t, s.SelectOption(ctx, "#x", "1"))
	var out any
	require.Error(t, s.Eval(ctx, "() => 1", &out))
	_, err := s.Screenshot(ctx)
	require.Error(t, err)

	assert.Empty(t, s.ControlURL())
	assert.NoError(t, s.Close(), "closing an unstarted session is a no-op")
	assert.NoError(t, s.Close())
}
