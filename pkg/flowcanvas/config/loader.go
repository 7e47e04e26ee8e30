package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a settings file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var formatsByExt = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".toml": FormatTOML,
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, bool) {
	f, ok := formatsByExt[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Parse decodes data in the given format. TOML integers decode as int64,
// JSON numbers as float64; the typed accessors accept either.
func Parse(format Format, data []byte) (Config, error) {
	var (
		m   map[string]any
		err error
	)
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatJSON:
		err = json.Unmarshal(data, &m)
	case FormatTOML:
		_, err = toml.Decode(string(data), &m)
	default:
		return Config{}, fmt.Errorf("unknown config format %q", format)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", format, err)
	}
	return New(m), nil
}

// FromFile reads path and parses it in the format named by its extension:
// .yaml, .yml, .json or .toml.
func FromFile(path string) (Config, error) {
	format, ok := FormatOf(path)
	if !ok {
		return Config{}, fmt.Errorf("unsupported config file extension: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(format, data)
}

// FromYAML parses YAML data.
func FromYAML(data []byte) (Config, error) { return Parse(FormatYAML, data) }

// FromJSON parses JSON data.
func FromJSON(data []byte) (Config, error) { return Parse(FormatJSON, data) }

// FromTOML parses TOML data.
func FromTOML(data []byte) (Config, error) { return Parse(FormatTOML, data) }
