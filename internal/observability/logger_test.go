package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   string
	}{
		{"json info", "info", "json", zapcore.InfoLevel, ""},
		{"console debug", "debug", "console", zapcore.DebugLevel, ""},
		{"defaults", "", "", zapcore.InfoLevel, ""},
		{"upper case level", "WARN", "json", zapcore.WarnLevel, ""},
		{"invalid level", "loud", "json", 0, "invalid log level"},
		{"invalid format", "info", "xml", 0, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, logger)
			defer logger.Sync()

			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}
