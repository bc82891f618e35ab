package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Prod(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")

	logger.Debug("hidden")
	logger.Info("page applied", "page", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "page applied", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, float64(2), record["page"])
	assert.NotEmpty(t, record["time"])
}

func TestNewLogger_DevConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "dev", "debug")

	logger.Debug("cart updated", "items", 3)

	out := buf.String()
	assert.Contains(t, out, "cart updated")
	assert.Contains(t, out, "items=")
	assert.Contains(t, out, "DBG")
	assert.NotContains(t, out, `"msg"`)
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		visible bool
	}{
		{level: "debug", visible: true},
		{level: "info", visible: false},
		{level: "bogus", visible: false},
		{level: "error", visible: false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, "prod", tt.level)

			logger.Debug("probe")

			assert.Equal(t, tt.visible, buf.Len() > 0)
		})
	}
}
