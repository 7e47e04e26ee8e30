package remote

import (
	"log/slog"
	"net/http"
	"time"

	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
)

// BreakerConfig tunes the save circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration
}

// DefaultBreakerConfig trips after five failed saves in a row and lets a
// trial save through after thirty seconds.
var DefaultBreakerConfig = BreakerConfig{
	ConsecutiveFailures: 5,
	MaxRequests:         1,
	Interval:            time.Minute,
	Timeout:             30 * time.Second,
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
// Default: a client with DefaultTimeout
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry sets the retry policy for loads.
// Default: errors.LoadRetry
func WithRetry(cfg fcerrors.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBreaker sets the save circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if cfg.ConsecutiveFailures == 0 {
			cfg.ConsecutiveFailures = DefaultBreakerConfig.ConsecutiveFailures
		}
		c.breakerCfg = cfg
	}
}

// WithToken sets a source of bearer tokens. It is called per request; an
// empty token sends no Authorization header.
func WithToken(fn func() string) Option {
	return func(c *Client) {
		c.token = fn
	}
}

// OnUnauthorized sets a hook fired on every 401 response.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
