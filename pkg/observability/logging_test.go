package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{name: "debug text", level: "debug", format: "text", wantLevel: logrus.DebugLevel},
		{name: "warn json", level: "warn", format: "json", wantLevel: logrus.WarnLevel, wantJSON: true},
		{name: "unknown level", level: "verbose", format: "", wantLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, tt.format, &buf)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			logger.WithField("extension_point", "codec").Error("failed")
			if tt.wantJSON {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
				assert.Equal(t, "failed", entry["msg"])
				assert.Equal(t, "codec", entry["extension_point"])
				return
			}
			assert.Contains(t, buf.String(), "extension_point=codec")
		})
	}

	t.Run("nil output", func(t *testing.T) {
		assert.NotNil(t, NewLogger("info", "text", nil).Out)
	})
}
