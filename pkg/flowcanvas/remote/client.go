package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// DefaultTimeout bounds one HTTP round trip.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

// ErrInvalidBaseURL is returned by New for a URL without scheme or host.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// Client talks to the persistence API. It is safe for concurrent use.
type Client struct {
	base           string
	http           *http.Client
	retry          fcerrors.RetryConfig
	breaker        *gobreaker.CircuitBreaker
	breakerCfg     BreakerConfig
	token          func() string
	onUnauthorized func()
	logger         *slog.Logger
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:       strings.TrimRight(u.String(), "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		retry:      fcerrors.LoadRetry,
		breakerCfg: DefaultBreakerConfig,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = c.newBreaker()
	return c, nil
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker {
	cfg := c.breakerCfg
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "flow-save",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// Client errors say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || !fcerrors.IsRetryable(err)
		},
	})
}

// BreakerState reports the save circuit breaker's state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Load fetches the flow document for graphID, retrying transient failures.
func (c *Client) Load(ctx context.Context, graphID string) (wire.FlowDocument, error) {
	res := fcerrors.WithRetryContext(ctx, c.retry, func(ctx context.Context) (wire.FlowDocument, error) {
		body, err := c.do(ctx, http.MethodGet, graphID, nil)
		if err != nil {
			return wire.FlowDocument{}, err
		}
		var doc wire.FlowDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return wire.FlowDocument{}, fcerrors.Malformed(err, "decode flow document")
		}
		return doc, nil
	})
	if res.Err != nil {
		c.logger.Debug("flow load failed",
			slog.String("graph_id", graphID),
			slog.Int("attempts", res.Attempts),
			slog.String("error", res.Err.Error()),
		)
	}
	return res.Value, res.Err
}

// Save stores req as the flow document for graphID. It is attempted once.
// While the breaker is open Save fails fast with a transient error.
func (c *Client) Save(ctx context.Context, graphID string, req wire.SaveRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fcerrors.Malformed(err, "encode save request")
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		_, err := c.do(ctx, http.MethodPut, graphID, payload)
		return nil, err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fcerrors.Transient(err, "save "+graphID)
	default:
		return fcerrors.NewCategorized(err, fcerrors.Categorize(err), "save "+graphID)
	}
}

func (c *Client) do(ctx context.Context, method, graphID string, payload []byte) ([]byte, error) {
	endpoint := "/flows/" + url.PathEscape(graphID)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, body)
	if err != nil {
		return nil, fcerrors.Malformed(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &fcerrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    message(resp, data),
			Endpoint:   method + " " + endpoint,
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, herr
	}
	return data, nil
}

// message prefers an {"error": "..."} body, then the raw body, then the
// status text.
func message(resp *http.Response, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
