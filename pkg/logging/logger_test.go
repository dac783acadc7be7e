package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestStructuredLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("weather-qc", "test", InfoLevel)
	logger.SetOutput(&buf)

	ctx := WithSource(WithRunID(context.Background(), "run-1"), "station.txt")
	logger.Debug(ctx, "[HIDDEN] below level", Fields{})
	logger.Info(ctx, "[QC_STAGE_COMPLETE] Stage complete", Fields{"check": "no_data"})
	logger.Error(ctx, "[QC_ERROR] failed", Fields{}, errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "weather-qc", entry.Service)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, "station.txt", entry.Source)
	assert.Equal(t, "no_data", entry.Fields["check"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "boom", entry.Error)
	assert.NotEmpty(t, entry.File)
}

func TestNopLogger_Discards(t *testing.T) {
	logger := NewNopLogger()
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Error(context.Background(), "[QC_ERROR] failed", Fields{}, errors.New("boom"))

	assert.Empty(t, buf.String())
}

func TestRunIDFromContext(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(context.Background()))
	assert.Equal(t, "run-2", RunIDFromContext(WithRunID(context.Background(), "run-2")))
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
