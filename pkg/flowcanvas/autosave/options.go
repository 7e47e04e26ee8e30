package autosave

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
)

// DefaultDelay is how long a Saver waits after the last significant change.
const DefaultDelay = 2 * time.Second

// DefaultName is sent when no flow name is configured.
const DefaultName = "Untitled flow"

// Option configures a Saver.
type Option func(*Saver)

// WithDelay sets the debounce delay.
// Default: 2s
func WithDelay(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithName sets a source for the flow name sent with every save.
func WithName(fn func() string) Option {
	return func(s *Saver) {
		if fn != nil {
			s.name = fn
		}
	}
}

// WithCache writes the saved graph to c as the last known good copy
// after every successful save.
func WithCache(c cache.Store) Option {
	return func(s *Saver) {
		s.cache = c
	}
}

// WithLogger sets the logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Saver) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSpans sets the span manager.
// Default: observability.NoopSpanManager{}
func WithSpans(sm observability.SpanManager) Option {
	return func(s *Saver) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// WithClock overrides the time source used in results.
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}
