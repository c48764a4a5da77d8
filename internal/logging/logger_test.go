package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want zapcore.Level
	}{
		{"default", Options{}, zapcore.InfoLevel},
		{"warn", Options{Level: "warn"}, zapcore.WarnLevel},
		{"verbose wins", Options{Level: "error", Verbose: true}, zapcore.DebugLevel},
		{"json", Options{Format: "json", Level: "debug"}, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestFor_NamesCategory(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	For(base, CategoryVerify).Info("run started")
	For(base, CategoryBrowser).Info("browser session started")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "verify", entries[0].LoggerName)
	assert.Equal(t, "browser", entries[1].LoggerName)

	assert.NotPanics(t, func() { For(nil, CategoryBoot).Info("dropped") })
}
