package utils

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, -12.35, FormatFloat(-12.3456, 2))
	assert.Equal(t, 0.6123, FormatFloat(0.61234, 4))
	assert.Equal(t, 3.0, FormatFloat(3.0004, 3))
	assert.True(t, math.IsNaN(FormatFloat(math.NaN(), 2)))
	assert.True(t, math.IsInf(FormatFloat(math.Inf(-1), 2), -1))
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("debug"))
	assert.True(t, GetLogger(context.Background()).Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitLogger("warn"))
	assert.False(t, GetLogger(context.Background()).Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, InitLogger("verbose"))
	assert.NotEmpty(t, GetPanicInfo())
}
