package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	lggr, err := New(true, "warn")
	require.NoError(t, err)
	assert.False(t, lggr.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, lggr.Core().Enabled(zapcore.WarnLevel))

	lggr, err = New(false, "")
	require.NoError(t, err)
	assert.True(t, lggr.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(false, "loud")
	require.Error(t, err)
}
