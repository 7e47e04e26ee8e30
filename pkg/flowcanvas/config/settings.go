package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings configures an editor session and the command line tools.
type Settings struct {
	// GraphID identifies the flow being edited.
	GraphID string `validate:"omitempty,max=200"`

	// FlowName is sent with every save.
	FlowName string

	Remote   RemoteSettings
	Cache    CacheSettings
	Autosave AutosaveSettings
	Guard    GuardSettings
	History  HistorySettings
	Drop     DropSettings
	Log      LogSettings
}

// RemoteSettings configures the persistence API client.
type RemoteSettings struct {
	// BaseURL of the API. Empty runs the session without a remote.
	BaseURL string        `validate:"omitempty,url"`
	Token   string        `validate:"-"`
	Timeout time.Duration `validate:"gte=0"`

	// BreakerFailures trips the save circuit breaker.
	BreakerFailures int           `validate:"gte=1"`
	BreakerTimeout  time.Duration `validate:"gte=0"`
}

// CacheSettings configures the durable cache.
type CacheSettings struct {
	// Path of the SQLite cache file. Empty keeps the cache in memory.
	Path string

	// QuotaBytes caps the total size of cached slots. Zero is unlimited.
	QuotaBytes int64 `validate:"gte=0"`
}

// AutosaveSettings configures the debounced save pipeline.
type AutosaveSettings struct {
	Enabled bool
	Delay   time.Duration `validate:"gt=0"`
}

// GuardSettings configures the persistence guard.
type GuardSettings struct {
	SweepInterval time.Duration `validate:"gt=0"`
}

// HistorySettings configures undo history.
type HistorySettings struct {
	Limit int `validate:"gte=1,lte=1000"`
}

// DropSettings configures palette drops.
type DropSettings struct {
	// DecisionOptions adds two option nodes under every dropped decision.
	DecisionOptions bool
}

// LogSettings configures logging.
type LogSettings struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// DefaultSettings returns the settings used for keys a file leaves out.
func DefaultSettings() Settings {
	return Settings{
		FlowName: "Untitled flow",
		Remote: RemoteSettings{
			Timeout:         15 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Autosave: AutosaveSettings{Enabled: true, Delay: 2 * time.Second},
		Guard:    GuardSettings{SweepInterval: 5 * time.Second},
		History:  HistorySettings{Limit: 50},
		Log:      LogSettings{Level: "info", Format: "text"},
	}
}

// SettingsFrom maps cfg onto DefaultSettings.
//
// Recognized layout (TOML shown):
//
//	graph_id = "flow-1"
//	flow_name = "Support bot"
//
//	[remote]
//	base_url = "https://api.example.com"
//	token = "..."
//	timeout = "15s"
//	breaker_failures = 5
//	breaker_timeout = "30s"
//
//	[cache]
//	path = "flowcanvas.db"
//	quota_bytes = 5242880
//
//	[autosave]
//	enabled = true
//	delay = "2s"
//
//	[guard]
//	sweep_interval = "5s"
//
//	[history]
//	limit = 50
//
//	[drop]
//	decision_options = false
//
//	[log]
//	level = "info"
//	format = "text"
func SettingsFrom(cfg Config) Settings {
	s := DefaultSettings()

	s.GraphID = cfg.String("graph_id", s.GraphID)
	s.FlowName = cfg.String("flow_name", s.FlowName)

	r := cfg.Sub("remote")
	s.Remote.BaseURL = r.String("base_url", s.Remote.BaseURL)
	s.Remote.Token = r.String("token", s.Remote.Token)
	s.Remote.Timeout = r.Duration("timeout", s.Remote.Timeout)
	s.Remote.BreakerFailures = r.Int("breaker_failures", s.Remote.BreakerFailures)
	s.Remote.BreakerTimeout = r.Duration("breaker_timeout", s.Remote.BreakerTimeout)

	c := cfg.Sub("cache")
	s.Cache.Path = c.String("path", s.Cache.Path)
	s.Cache.QuotaBytes = c.Int64("quota_bytes", s.Cache.QuotaBytes)

	a := cfg.Sub("autosave")
	s.Autosave.Enabled = a.Bool("enabled", s.Autosave.Enabled)
	s.Autosave.Delay = a.Duration("delay", s.Autosave.Delay)

	s.Guard.SweepInterval = cfg.Sub("guard").Duration("sweep_interval", s.Guard.SweepInterval)
	s.History.Limit = cfg.Sub("history").Int("limit", s.History.Limit)
	s.Drop.DecisionOptions = cfg.Sub("drop").Bool("decision_options", s.Drop.DecisionOptions)

	l := cfg.Sub("log")
	s.Log.Level = strings.ToLower(l.String("level", s.Log.Level))
	s.Log.Format = strings.ToLower(l.String("format", s.Log.Format))

	return s
}

// Environment variables that override file settings.
const (
	EnvGraphID       = "FLOWCANVAS_GRAPH_ID"
	EnvRemoteBaseURL = "FLOWCANVAS_REMOTE_URL"
	EnvRemoteToken   = "FLOWCANVAS_REMOTE_TOKEN"
)

// LoadSettings reads path, applies the environment overrides and
// validates the result. An empty path starts from DefaultSettings.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		cfg, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = SettingsFrom(cfg)
	}
	s.ApplyEnv(os.LookupEnv)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyEnv overrides the graph id, API base URL and token with the
// FLOWCANVAS_* variables lookup finds. Tokens belong in the environment
// rather than in a settings file.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvGraphID); ok && v != "" {
		s.GraphID = v
	}
	if v, ok := lookup(EnvRemoteBaseURL); ok && v != "" {
		s.Remote.BaseURL = v
	}
	if v, ok := lookup(EnvRemoteToken); ok {
		s.Remote.Token = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and formats.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var msgs []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid settings: %w", err)
}

// SlogLevel returns the slog level named by Level.
func (l LogSettings) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w in the configured format.
func (l LogSettings) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
