package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"codeberg.org/mutker/sensoragent/internal/errors"
	"codeberg.org/mutker/sensoragent/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel)

	log := logger.Component("transport").With("endpoint", "ws://example")
	log.Info().Msg("Connected")

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "transport", entries[0]["component"])
	assert.Equal(t, "ws://example", entries[0]["endpoint"])
	assert.Equal(t, "Connected", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.WarnLevel)
	t.Cleanup(func() { logger.SetLogLevel(logger.DebugLevel) })

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel)

	err := errors.New().New(errors.ErrInvalidEndpoint)
	logger.ErrorWithCode(err).Msg("bad config")

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "invalid_endpoint", entries[0]["error_code"])
}

func TestNop(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel)

	logger.Nop().With("k", "v").Error().Msg("nothing")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, level)

	level, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, level)

	_, ok = logger.ParseLevel("loud")
	assert.False(t, ok)
}
