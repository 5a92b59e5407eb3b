package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, "level %q should be valid", name)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		l, err := New(Config{Service: "test", Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.NotNil(t, l)
		assert.NoError(t, l.Close())
	})

	t.Run("console", func(t *testing.T) {
		l, err := New(Config{Service: "test", Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New(Config{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Level: "loud", Format: "json"})
		assert.Error(t, err)
	})
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clicker.log")

	l, err := New(Config{Service: "test", Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	l.Info("connected", Field{Key: "url", Value: "ws://example/game/"})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"connected"`)
	assert.Contains(t, string(data), `"service":"test"`)
}

func TestZerologLogger_WithAndLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf), "svc", zerolog.InfoLevel)

	child := l.With(Field{Key: "component", Value: "session"})
	child.Debug("hidden")
	child.Warn("send failed", Err(errors.New("boom")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "svc", entry["service"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("ignored")
	assert.NoError(t, l.With(Field{Key: "a", Value: 1}).Close())
}
