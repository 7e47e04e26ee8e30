// Package observability provides structured logging, metrics and tracing
// for the flow editor core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every Log helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the graph id to every record.
func EnrichLogger(logger *slog.Logger, graphID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("graph_id", graphID))
}

// LogConnectRejected logs a connection attempt that could not produce an edge.
func LogConnectRejected(logger *slog.Logger, source, target, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("connection rejected",
		slog.String("source", source),
		slog.String("target", target),
		slog.String("reason", reason),
	)
}

// LogNodeRejected logs a node mutation that was skipped.
func LogNodeRejected(logger *slog.Logger, nodeID, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("node change rejected",
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
	)
}

// LogEdgeDropped logs an edge removed during reconciliation or replacement.
func LogEdgeDropped(logger *slog.Logger, edgeID, reason, value string) {
	if logger == nil {
		return
	}
	logger.Warn("edge dropped",
		slog.String("edge_id", edgeID),
		slog.String("reason", reason),
		slog.String("value", value),
	)
}

// LogLoadStart logs the start of a graph load.
func LogLoadStart(logger *slog.Logger, graphID string) {
	if logger == nil {
		return
	}
	logger.Info("graph load starting",
		slog.String("graph_id", graphID),
	)
}

// LogLoadComplete logs a finished graph load.
func LogLoadComplete(logger *slog.Logger, graphID, source string, nodes, edges, dropped int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("graph load completed",
		slog.String("graph_id", graphID),
		slog.String("source", source),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
		slog.Int("edges_dropped", dropped),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLoadError logs a failed remote load. The editor falls back to the cache.
func LogLoadError(logger *slog.Logger, graphID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("graph load failed",
		slog.String("graph_id", graphID),
		slog.String("error", err.Error()),
	)
}

// LogSaveComplete logs a successful save.
func LogSaveComplete(logger *slog.Logger, graphID string, nodes, edges int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("graph saved",
		slog.String("graph_id", graphID),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSaveError logs a failed save. In-memory state is kept.
func LogSaveError(logger *slog.Logger, graphID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("graph save failed",
		slog.String("graph_id", graphID),
		slog.String("error", err.Error()),
	)
}

// LogGuardRefusal logs a refused destructive replacement.
func LogGuardRefusal(logger *slog.Logger, graphID string, currentNodes int) {
	if logger == nil {
		return
	}
	logger.Warn("destructive node replacement refused",
		slog.String("graph_id", graphID),
		slog.Int("current_nodes", currentNodes),
	)
}

// LogCacheWriteError logs a failed durable cache write (non-fatal).
func LogCacheWriteError(logger *slog.Logger, graphID, slot string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("cache write failed",
		slog.String("graph_id", graphID),
		slog.String("slot", slot),
		slog.String("error", err.Error()),
	)
}

// LogBackup logs a durable snapshot.
func LogBackup(logger *slog.Logger, graphID, reason string, nodes int) {
	if logger == nil {
		return
	}
	logger.Debug("graph backed up",
		slog.String("graph_id", graphID),
		slog.String("reason", reason),
		slog.Int("nodes", nodes),
	)
}

// LogRecovery logs a restored graph.
func LogRecovery(logger *slog.Logger, graphID, source string, nodes int) {
	if logger == nil {
		return
	}
	logger.Info("graph recovered",
		slog.String("graph_id", graphID),
		slog.String("source", source),
		slog.Int("nodes", nodes),
	)
}

// LogAnomaly logs a consistency sweep finding.
func LogAnomaly(logger *slog.Logger, graphID string, previousNodes int) {
	if logger == nil {
		return
	}
	logger.Warn("nodes vanished without a cache backup",
		slog.String("graph_id", graphID),
		slog.Int("previous_nodes", previousNodes),
	)
}

// LogDropRejected logs a palette drop that was not turned into a node.
func LogDropRejected(logger *slog.Logger, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("drop rejected", slog.String("reason", reason))
}

// LogNodeDropped logs a node created from a palette drop.
func LogNodeDropped(logger *slog.Logger, nodeID, nodeType string, x, y float64) {
	if logger == nil {
		return
	}
	logger.Debug("node dropped",
		slog.String("node_id", nodeID),
		slog.String("type", nodeType),
		slog.Float64("x", x),
		slog.Float64("y", y),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports elapsed milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
