package flowcanvas

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/event"
)

type storeConfig struct {
	graphID      string
	logger       *slog.Logger
	historyLimit int
	bus          event.Bus
	now          func() time.Time
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		logger:       slog.Default(),
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

// WithGraphID sets the identifier of the graph held by the store.
// It tags log records and events.
func WithGraphID(id string) StoreOption {
	return func(c *storeConfig) {
		c.graphID = id
	}
}

// WithLogger sets the store logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) StoreOption {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHistoryLimit sets the number of undo steps kept.
// Default: 50
func WithHistoryLimit(n int) StoreOption {
	return func(c *storeConfig) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithBus publishes notifications on an existing bus instead of a private
// one. The store does not close a bus it did not create.
func WithBus(bus event.Bus) StoreOption {
	return func(c *storeConfig) {
		c.bus = bus
	}
}

// WithClock overrides the time source used for generated ids and snapshots.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}
