package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "json", &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("indexed", "files", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "indexed", rec["msg"])
	assert.Equal(t, float64(3), rec["files"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "", &buf)
	require.NoError(t, err)

	logger.Debug("scope skipped", "scope", "meta.class.perl")
	assert.Contains(t, buf.String(), "scope=meta.class.perl")
}

func TestNew_Errors(t *testing.T) {
	_, err := New("info", "xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = New("verbose", "text", &bytes.Buffer{})
	assert.Error(t, err)
}
