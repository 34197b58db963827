package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/tgienger/strack/internal/config"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "strack.log")

	logger, err := New(config.LoggingConfig{Level: "info", File: path}, SinkDiscard, false)
	require.NoError(t, err)

	logger.Info("imported reports")
	logger.Debug("hidden at info")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "imported reports")
	assert.NotContains(t, string(data), "hidden at info")
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strack.log")

	logger, err := New(config.LoggingConfig{Level: "error", File: path}, SinkStderr, true)
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_DiscardWithoutFile(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug"}, SinkDiscard, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"}, SinkStderr, false)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = parseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)
}
