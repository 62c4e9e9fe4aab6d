package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zap.AtomicLevel) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{z: zap.New(core)}, logs
}

func TestInfo_WritesFields(t *testing.T) {
	l, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))
	l.Info("session started", zap.String("session_id", "abc"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "session started", entry.Message)
	assert.Equal(t, "abc", entry.ContextMap()["session_id"])
}

func TestCritical_BypassesConfiguredLevel(t *testing.T) {
	l, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.ErrorLevel))
	l.Critical("notary signing failed")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "CRITICAL:")
}

func TestSecurity_BypassesConfiguredLevel(t *testing.T) {
	l, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.ErrorLevel))
	l.Security("ciphertext commitment mismatch")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "SECURITY:")
}

func TestWithSession_AddsSessionIDToEveryEntry(t *testing.T) {
	l, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))
	scoped := l.WithSession("session-42")
	scoped.Info("handshake complete")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "session-42", logs.All()[0].ContextMap()["session_id"])
}

func TestNewFromEnv_BuildsAWorkingLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PROVER_ENV", "development")

	l := NewFromEnv()
	require.NotNil(t, l)
	assert.NoError(t, l.Sync())
}

func TestNew_BuildsConsoleEncodedLogger(t *testing.T) {
	l, err := New(Config{Level: "info", Format: "console", Env: "development"})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestNew_BuildsJSONEncodedLogger(t *testing.T) {
	l, err := New(Config{Level: "warn", Format: "json", Env: "production"})
	require.NoError(t, err)
	require.NotNil(t, l)
}
