package zaplogrus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"TRACE":   DebugLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l := New()
	assert.Equal(t, InfoLevel, l.GetLevel())
	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.GetLevel())
}

func TestEntry_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core)

	l.Named("calibration").
		WithFields(Fields{"market": "BTC"}).
		WithError(errors.New("boom")).
		Warnf("fallback for %s", "BTC")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "fallback for BTC", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "calibration", ctx["component"])
	assert.Equal(t, "BTC", ctx["market"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestEntry_WithFieldDoesNotShareState(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewWithCore(core)

	base := l.WithField("a", 1)
	base.WithField("b", 2).Info("first")
	base.WithField("c", 3).Info("second")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[1].ContextMap(), "b")
	assert.Contains(t, entries[1].ContextMap(), "c")
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().WithField("k", "v").Error("discarded")
	})
}

func TestNewConsole_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsole(&buf, WarnLevel)

	l.Info("hidden")
	l.WithField("market", "BTC").Warn("calibration stale")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "calibration stale")
	assert.Contains(t, out, `"market": "BTC"`)

	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
