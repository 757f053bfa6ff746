package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "json")

	log.Debug("hidden")
	require.Zero(t, buf.Len())

	log.With("worker", 3).Info("worker started", "pinned", true)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "worker started", rec["msg"])
	require.Equal(t, float64(3), rec["worker"])
	require.Equal(t, true, rec["pinned"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelDebug, "text").Warn("queue drained", "count", 2)
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "count=2")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("dropped")
	log.With("k", "v").Info("dropped")
}
