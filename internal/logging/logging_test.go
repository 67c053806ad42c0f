package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		json  bool
		want  zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"debug", false, zapcore.DebugLevel},
		{"WARN", true, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.level, tt.json)
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(tt.want))
		require.False(t, logger.Core().Enabled(tt.want-1))
	}
}

func TestNew_BadLevel(t *testing.T) {
	t.Parallel()

	_, err := New("loud", false)
	require.Error(t, err)
}
