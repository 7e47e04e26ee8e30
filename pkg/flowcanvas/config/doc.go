/*
Package config loads editor settings from YAML, JSON or TOML files.

# Typed access

Config wraps a map[string]any decoded from any of the supported formats
and returns typed values, falling back to a default when a key is
missing or holds the wrong type:

	cfg, err := config.FromFile("flowcanvas.toml")
	if err != nil {
	    return err
	}
	delay := cfg.Duration("autosave.delay", 2*time.Second)

Keys are dotted paths into nested tables. Durations accept "1500ms"-style strings or numbers of seconds. Integers
accept whole floats, so JSON numbers work.

# Settings

Settings is the typed view of a configuration file the editor session
and the command line use:

	s, err := config.LoadSettings("flowcanvas.yaml")

A missing key keeps its value from DefaultSettings. An empty path loads
the defaults alone.

# Thread Safety

Config is safe for concurrent reads. It never modifies the map it wraps.
*/
package config
