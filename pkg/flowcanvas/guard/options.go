package guard

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/reconcile"
)

// DefaultSweepInterval is how often the consistency sweep runs.
const DefaultSweepInterval = 5 * time.Second

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the guard logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records refusals, cache writes and anomalies.
// Default: observability.NoopMetrics
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(g *Guard) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithSweepInterval sets the sweep period used by Start.
// Default: 5s
func WithSweepInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithReconciler sets the reconciler used to rebuild cached edges.
// Default: reconcile.New with the guard logger
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(g *Guard) {
		g.reconciler = r
	}
}

// WithClock overrides the time source for snapshots and anomalies.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// ReplaceOption configures one ReplaceNodes call.
type ReplaceOption func(*replaceConfig)

type replaceConfig struct {
	token Token
}

// WithToken presents a token from Authorize. The token is spent by the
// call whether or not the replacement needed it.
func WithToken(t Token) ReplaceOption {
	return func(c *replaceConfig) {
		c.token = t
	}
}
