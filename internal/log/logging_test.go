package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatAuto, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestAutoFormatIsJSONOffTerminal(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatAuto.resolve(&bytes.Buffer{}))
	assert.Equal(t, FormatText, FormatText.resolve(&bytes.Buffer{}))
}

func TestSetupLoggerSplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, closers, err := SetupLoggerTo(Sinks{Out: &out, Err: &errOut}, "debug", "", "text")
	require.NoError(t, err)
	assert.Empty(t, closers)

	logger.Debug("debug line")
	logger.Info("info line", "items", 3)
	logger.Error("error line")

	assert.Contains(t, out.String(), "debug line")
	assert.Contains(t, out.String(), "items=3")
	assert.NotContains(t, out.String(), "error line")
	assert.Contains(t, errOut.String(), "error line")
	assert.NotContains(t, errOut.String(), "info line")
}

func TestSetupLoggerTraceLevel(t *testing.T) {
	var out bytes.Buffer
	logger, _, err := SetupLoggerTo(Sinks{Out: &out, Err: &out}, "trace", "", "json")
	require.NoError(t, err)

	logger.Log(t.Context(), LevelTrace, "token", "kind", "ident")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "TRACE", rec["level"])
	assert.Equal(t, "token", rec["msg"])
}

func TestSetupLoggerFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "hdrbind.log")
	logger, closers, err := SetupLoggerTo(Sinks{Out: &console, Err: &console}, "info", path, "text")
	require.NoError(t, err)
	require.Len(t, closers, 1)

	logger.With("lang", "rust").WithGroup("gen").Info("wrote", "file", "out.rs")
	logger.Debug("hidden")
	require.NoError(t, closers[0].Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lang=rust gen.file=out.rs")
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, console.String(), "wrote")
}

func TestSetupLoggerBadFormat(t *testing.T) {
	_, _, err := SetupLogger("info", "", "xml")
	assert.Error(t, err)
}
