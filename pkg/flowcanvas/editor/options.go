package editor

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/autosave"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/guard"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
)

type sessionConfig struct {
	remote          Remote
	cache           cache.Store
	ownsCache       bool
	catalog         *catalog.Catalog
	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	autosave        bool
	autosaveDelay   time.Duration
	historyLimit    int
	sweepInterval   time.Duration
	decisionOptions bool
	flowName        string
	now             func() time.Time
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		autosave:      true,
		autosaveDelay: autosave.DefaultDelay,
		historyLimit:  flowcanvas.DefaultHistoryLimit,
		sweepInterval: guard.DefaultSweepInterval,
		flowName:      autosave.DefaultName,
		now:           time.Now,
	}
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithRemote sets the persistence API. Without one the session works from
// the cache alone and Save returns ErrOffline.
func WithRemote(r Remote) Option {
	return func(c *sessionConfig) {
		c.remote = r
	}
}

// WithCache sets the durable cache. The session does not close a cache it
// was given.
// Default: an unbounded cache.MemoryStore owned by the session
func WithCache(s cache.Store) Option {
	return func(c *sessionConfig) {
		c.cache = s
		c.ownsCache = false
	}
}

// withOwnedCache hands the cache's lifetime to the session.
func withOwnedCache(s cache.Store) Option {
	return func(c *sessionConfig) {
		c.cache = s
		c.ownsCache = true
	}
}

// WithCatalog sets the node kind catalog used for drops, labels, lint and
// minimap colors.
// Default: catalog.Default()
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *sessionConfig) {
		c.catalog = cat
	}
}

// WithLogger sets the logger shared by every component of the session.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *sessionConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans sets the span manager.
// Default: observability.NoopSpanManager{}
func WithSpans(sm observability.SpanManager) Option {
	return func(c *sessionConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithAutosave turns debounced saves on significant changes on or off.
// Explicit saves work either way.
// Default: true
func WithAutosave(enabled bool) Option {
	return func(c *sessionConfig) {
		c.autosave = enabled
	}
}

// WithAutosaveDelay sets the debounce delay.
// Default: 2s
func WithAutosaveDelay(d time.Duration) Option {
	return func(c *sessionConfig) {
		if d > 0 {
			c.autosaveDelay = d
		}
	}
}

// WithHistoryLimit sets the number of undo steps kept.
// Default: 50
func WithHistoryLimit(n int) Option {
	return func(c *sessionConfig) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithSweepInterval sets the guard's consistency sweep interval.
// Default: 5s
func WithSweepInterval(d time.Duration) Option {
	return func(c *sessionConfig) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithDecisionOptions makes dropped decision nodes start with two option
// branches.
func WithDecisionOptions(enabled bool) Option {
	return func(c *sessionConfig) {
		c.decisionOptions = enabled
	}
}

// WithFlowName sets the name saved with the flow until a load supplies one.
func WithFlowName(name string) Option {
	return func(c *sessionConfig) {
		if name != "" {
			c.flowName = name
		}
	}
}

// WithClock overrides the time source for ids, snapshots and messages.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) {
		if now != nil {
			c.now = now
		}
	}
}
