package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	RunID     string `json:"run_id"`
	Message   string `json:"message"`
}

func entries(t *testing.T, data []byte) []entry {
	t.Helper()
	var out []entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("auth", LevelInfo, &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed: %s", "boom")

	got := entries(t, buf.Bytes())
	require.Len(t, got, 2)
	assert.Equal(t, "info", got[0].Level)
	assert.Equal(t, "auth", got[0].Component)
	assert.Equal(t, "shown 2", got[0].Message)
	assert.Equal(t, "error", got[1].Level)
	assert.Equal(t, "failed: boom", got[1].Message)
}

func TestLogger_WithSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("root", LevelDebug, &buf).WithRunID("0123456789abcdef")
	l.With("booking").Infof("hello")

	got := entries(t, buf.Bytes())
	require.Len(t, got, 1)
	assert.Equal(t, "booking", got[0].Component)
	assert.Equal(t, "0123456789abcdef", got[0].RunID)
	assert.Equal(t, "hello", got[0].Message)
	assert.Equal(t, "0123456789abcdef", l.RunID())

	// Tags are replaced, not repeated.
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"component"`)))
}

func TestNew_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := New("test", LevelInfo, dir)
	require.NoError(t, err)
	l.Infof("to file")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	got := entries(t, data)
	require.Len(t, got, 1)
	assert.Equal(t, "to file", got[0].Message)
	assert.Equal(t, "test", got[0].Component)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Errorf("nothing")
	assert.NotEmpty(t, l.RunID())
}
