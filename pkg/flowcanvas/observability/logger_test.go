package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	return rec
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := jsonLogger()
	EnrichLogger(logger, "flow-1").Info("hello")

	rec := lastRecord(t, buf)
	assert.Equal(t, "flow-1", rec["graph_id"])
	assert.Nil(t, EnrichLogger(nil, "flow-1"))
}

func TestLogHelpers(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		key   string
		value any
	}{
		{"connect rejected", func(l *slog.Logger) { LogConnectRejected(l, "a", "", "missing target") }, "WARN", "connection rejected", "reason", "missing target"},
		{"node rejected", func(l *slog.Logger) { LogNodeRejected(l, "n1", "duplicate id") }, "WARN", "node change rejected", "node_id", "n1"},
		{"edge dropped", func(l *slog.Logger) { LogEdgeDropped(l, "e1", "unresolved target", "n99") }, "WARN", "edge dropped", "value", "n99"},
		{"load start", func(l *slog.Logger) { LogLoadStart(l, "g") }, "INFO", "graph load starting", "graph_id", "g"},
		{"load complete", func(l *slog.Logger) { LogLoadComplete(l, "g", "remote", 3, 2, 1, 4.5) }, "INFO", "graph load completed", "edges_dropped", float64(1)},
		{"load error", func(l *slog.Logger) { LogLoadError(l, "g", errors.New("offline")) }, "WARN", "graph load failed", "error", "offline"},
		{"save complete", func(l *slog.Logger) { LogSaveComplete(l, "g", 3, 2, 9) }, "INFO", "graph saved", "nodes", float64(3)},
		{"save error", func(l *slog.Logger) { LogSaveError(l, "g", errors.New("HTTP 500")) }, "ERROR", "graph save failed", "error", "HTTP 500"},
		{"guard refusal", func(l *slog.Logger) { LogGuardRefusal(l, "g", 3) }, "WARN", "destructive node replacement refused", "current_nodes", float64(3)},
		{"cache write", func(l *slog.Logger) { LogCacheWriteError(l, "g", "nodes", errors.New("quota")) }, "WARN", "cache write failed", "slot", "nodes"},
		{"backup", func(l *slog.Logger) { LogBackup(l, "g", "before load", 2) }, "DEBUG", "graph backed up", "reason", "before load"},
		{"recovery", func(l *slog.Logger) { LogRecovery(l, "g", "cache", 2) }, "INFO", "graph recovered", "source", "cache"},
		{"drop rejected", func(l *slog.Logger) { LogDropRejected(l, "missing type") }, "WARN", "drop rejected", "reason", "missing type"},
		{"node dropped", func(l *slog.Logger) { LogNodeDropped(l, "message-1", "message", 100, 60) }, "DEBUG", "node dropped", "x", float64(100)},
		{"anomaly", func(l *slog.Logger) { LogAnomaly(l, "g", 5) }, "WARN", "nodes vanished without a cache backup", "previous_nodes", float64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := jsonLogger()
			tt.log(logger)

			rec := lastRecord(t, buf)
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, tt.msg, rec["msg"])
			assert.Equal(t, tt.value, rec[tt.key])

			assert.NotPanics(t, func() { tt.log(nil) })
		})
	}
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	assert.GreaterOrEqual(t, done(), 0.0)
}
