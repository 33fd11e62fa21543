package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer until the test ends
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	output = buf
	mu.Unlock()
	originalLevel := GetLevel()
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = originalOutput
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
		mu.Unlock()
		SetLevel(originalLevel.String())
		SetFormat(originalFormat)
		reconfigure()
	})
	return buf
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		for _, msg := range []string{"debug message", "info message", "warn message", "error message"} {
			assert.Contains(t, out, msg)
		}
	})

	t.Run("WarnLevelFiltersInfo", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("warn")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		captureOutput(t)
		SetLevel("ERROR")
		SetLevel("verbose")
		assert.Equal(t, LevelError, GetLevel())
	})
}

// ============================================================================
// Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("phase complete", "phase", "align", "tasks", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "phase complete", entry["msg"])
	assert.Equal(t, "align", entry["phase"])
	assert.Equal(t, float64(4), entry["tasks"])
}

func TestWith(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	With("domain", "small").Info("populated")
	out := buf.String()
	assert.Contains(t, out, "domain=small")
	assert.Contains(t, out, "populated")
}

func TestInit(t *testing.T) {
	captureOutput(t)
	path := filepath.Join(t.TempDir(), "blockremap.log")

	require.NoError(t, Init(Config{Level: "DEBUG", Format: "text", Output: path}))
	Debug("to file", "k", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))

	assert.Error(t, Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")}))
}

func TestInit_ClosesPreviousFile(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()

	require.NoError(t, Init(Config{Output: filepath.Join(dir, "first.log")}))
	mu.RLock()
	first := logFile
	mu.RUnlock()
	require.NotNil(t, first)

	require.NoError(t, Init(Config{Output: filepath.Join(dir, "second.log")}))
	_, err := first.WriteString("late\n")
	assert.ErrorIs(t, err, os.ErrClosed)

	Info("after switch")
	data, err := os.ReadFile(filepath.Join(dir, "second.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "after switch")

	// Switching back to a stream closes the second file too
	require.NoError(t, Init(Config{Output: "stderr"}))
	mu.RLock()
	assert.Nil(t, logFile)
	mu.RUnlock()
}

func TestDuration(t *testing.T) {
	start := time.Now().Add(-1500 * time.Millisecond)
	ms := Duration(start)
	assert.GreaterOrEqual(t, ms, 1500.0)
	assert.Less(t, ms, 60000.0)
}

func TestInitWithWriter(t *testing.T) {
	captureOutput(t)
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "INFO", "json")

	Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
