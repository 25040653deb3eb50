package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewConsole(t *testing.T) {
	l, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	l.Debug("hello", "k", "v")
}

func TestFieldsAndNames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).Named("parking").With("complex", "c1")

	l.Info("parked", "plate", "abc123")
	l.Warn("slot taken")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "parking", entries[0].LoggerName)
	assert.Equal(t, "parked", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "c1", ctx["complex"])
	assert.Equal(t, "abc123", ctx["plate"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
