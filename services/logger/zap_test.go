package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_fields(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLoggerFrom(zap.New(obs))

	logger.Warn("publishing outline snapshot",
		errors.New("redis down"),
		map[string]interface{}{"course_id": "c1"},
		42,
	)
	logger.Info("plain")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	warn := entries[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "publishing outline snapshot", warn.Message)
	ctx := warn.ContextMap()
	assert.Equal(t, "redis down", ctx["error"])
	assert.Equal(t, "c1", ctx["course_id"])
	assert.EqualValues(t, 42, ctx["arg0"])

	assert.Empty(t, entries[1].Context)
}

func TestNewZapLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewZapLogger(format, "test")
		require.NoError(t, err, format)
		logger.Debug("hello", map[string]interface{}{"format": format})
	}
}
