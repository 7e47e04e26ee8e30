package editor

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/config"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote"
)

// Open validates settings and builds a Session for settings.GraphID.
// opts are applied after the options derived from settings, so they win.
//
// A remote client is created when Remote.BaseURL is set. The cache is a
// SQLite file when Cache.Path is set and memory otherwise; either way the
// session closes it.
func Open(settings config.Settings, opts ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.GraphID == "" {
		return nil, ErrNoGraphID
	}

	logger := settings.Log.Logger(os.Stderr)
	derived := []Option{
		WithLogger(logger),
		WithAutosave(settings.Autosave.Enabled),
		WithAutosaveDelay(settings.Autosave.Delay),
		WithHistoryLimit(settings.History.Limit),
		WithSweepInterval(settings.Guard.SweepInterval),
		WithDecisionOptions(settings.Drop.DecisionOptions),
		WithFlowName(settings.FlowName),
	}

	if settings.Remote.BaseURL != "" {
		client, err := newRemote(settings.Remote, logger)
		if err != nil {
			return nil, err
		}
		derived = append(derived, WithRemote(client))
	}

	store, err := openCache(settings.Cache)
	if err != nil {
		return nil, err
	}
	derived = append(derived, withOwnedCache(store))

	sess, err := New(settings.GraphID, append(derived, opts...)...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return sess, nil
}

func newRemote(rs config.RemoteSettings, logger *slog.Logger) (*remote.Client, error) {
	token := rs.Token
	opts := []remote.Option{
		remote.WithHTTPClient(&http.Client{Timeout: rs.Timeout}),
		remote.WithBreaker(remote.BreakerConfig{
			ConsecutiveFailures: uint32(rs.BreakerFailures),
			MaxRequests:         remote.DefaultBreakerConfig.MaxRequests,
			Interval:            remote.DefaultBreakerConfig.Interval,
			Timeout:             rs.BreakerTimeout,
		}),
		remote.OnUnauthorized(func() {
			logger.Warn("persistence API rejected the token")
		}),
		remote.WithLogger(logger),
	}
	if token != "" {
		opts = append(opts, remote.WithToken(func() string { return token }))
	}
	client, err := remote.New(rs.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote client: %w", err)
	}
	return client, nil
}

func openCache(cs config.CacheSettings) (cache.Store, error) {
	if cs.Path == "" {
		return cache.NewMemoryStore(cache.WithQuota(cs.QuotaBytes)), nil
	}
	store, err := cache.NewSQLiteStore(cs.Path, cache.WithSQLiteQuota(cs.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cs.Path, err)
	}
	return store, nil
}
