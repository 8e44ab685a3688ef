package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNamed(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Named(nil, "db"))

	core, logs := observer.New(zap.InfoLevel)
	Named(zap.New(core), "cache").Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "cache", logs.All()[0].LoggerName)
}
