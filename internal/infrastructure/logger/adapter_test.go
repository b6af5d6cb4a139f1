package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "open_the_settings_menu", sanitize("open the settings menu!"))
	assert.Equal(t, "task", sanitize("  ??  "))
	assert.Len(t, sanitize(string(make([]byte, 200))), 4)

	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	assert.Len(t, sanitize(long), 60)
}

func TestLoggerAdapter_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLoggerAdapter(Config{Level: "debug", Dir: dir, TaskName: "click save"})
	require.NoError(t, err)

	log.WithField("request_id", "r-1").Info("Iteration started", "iteration", 3)
	log.Debug("details", "x", 10)
	require.NoError(t, log.Close())

	f, err := os.Open(log.Path())
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "Iteration started", lines[0]["message"])
	assert.Equal(t, "r-1", lines[0]["request_id"])
	assert.EqualValues(t, 3, lines[0]["iteration"])
	assert.Equal(t, "DEBUG", lines[1]["level"])
}

func TestLoggerAdapter_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLoggerAdapter(Config{Level: "warn", Dir: dir})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestLoggerAdapter_WithFieldsSorted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.WithFields(map[string]any{"b": 2, "a": 1}).Warn("fields")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.EqualValues(t, 1, ctx["a"])
	assert.EqualValues(t, 2, ctx["b"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Error("ignored", "k", "v")
	assert.NoError(t, log.Close())
	assert.Empty(t, log.Path())
}
