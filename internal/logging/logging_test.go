package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.WarnLevel,
		"DEBUG": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Level: "info", Writer: &buf})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("Reconciled", zap.Int("paths", 2))
	logger.Debug("hidden")

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	assert.NotContains(t, line, "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "Reconciled", entry["msg"])
	assert.EqualValues(t, 2, entry["paths"])
}

func TestNewForcedConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := New(Options{Level: "warn", Format: FormatConsole, Writer: &buf})
	require.NoError(t, err)
	defer cleanup()

	logger.Warn("careful")
	assert.Contains(t, buf.String(), "careful")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagehand.log")
	logger, cleanup, err := New(Options{Level: "debug", File: path, Writer: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Debug("to file")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}
