package dragdrop

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithCatalog sets the kinds a drop may name.
// Default: catalog.Default()
func WithCatalog(c *catalog.Catalog) Option {
	return func(in *Ingestor) {
		if c != nil {
			in.catalog = c
		}
	}
}

// WithLogger sets the logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithClock overrides the time source used for node ids.
func WithClock(now func() time.Time) Option {
	return func(in *Ingestor) {
		if now != nil {
			in.now = now
		}
	}
}

// WithDecisionOptions makes a dropped decision arrive with two default
// option branches already connected, unless the payload brings its own
// conditions.
func WithDecisionOptions() Option {
	return func(in *Ingestor) {
		in.options = true
	}
}
