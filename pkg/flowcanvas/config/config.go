package config

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Config is a decoded configuration document with typed, defaulting
// accessors. Keys may be dotted paths into nested tables, so
// cfg.String("remote.base_url", "") equals cfg.Sub("remote").String("base_url", "").
type Config struct {
	data map[string]any
}

// New wraps data. A nil map is treated as empty.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// table normalises the map types the YAML, JSON and TOML decoders produce.
func table(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if s, ok := k.(string); ok {
				out[s] = val
			}
		}
		return out, true
	}
	return nil, false
}

func (c Config) lookup(key string) (any, bool) {
	m := c.data
	for {
		head, rest, nested := strings.Cut(key, ".")
		v, ok := m[head]
		if !ok || !nested {
			return v, ok
		}
		if m, ok = table(v); !ok {
			return nil, false
		}
		key = rest
	}
}

// Sub returns the table at key. Anything else yields an empty Config.
func (c Config) Sub(key string) Config {
	v, _ := c.lookup(key)
	m, _ := table(v)
	return New(m)
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Keys returns the top-level keys in sorted order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.data))
}

// String returns the string at key, or def.
func (c Config) String(key, def string) string {
	v, _ := c.lookup(key)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def. Strings are not parsed.
func (c Config) Bool(key string, def bool) bool {
	v, _ := c.lookup(key)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Duration returns the duration at key, or def. Strings use
// time.ParseDuration and bare numbers are seconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
		return def
	}
	if secs, ok := number(v); ok {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

// Int returns the integer at key, or def. A float only counts when it is
// whole.
func (c Config) Int(key string, def int) int {
	return int(c.Int64(key, int64(def)))
}

// Int64 is Int for values such as byte quotas that may exceed 32 bits.
func (c Config) Int64(key string, def int64) int64 {
	v, _ := c.lookup(key)
	f, ok := number(v)
	if !ok || f != float64(int64(f)) {
		return def
	}
	return int64(f)
}

// number converts the numeric types decoders produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
