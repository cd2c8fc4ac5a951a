// Package config loads pxread settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds settings shared by the CLI and the server.
type Config struct {
	// Password unlocks encrypted tables.
	Password string `toml:"password"`
	// BlobFile is the path of the .MB side file, when the table has one.
	BlobFile string `toml:"blob_file"`
	// Encoding overrides the codepage recorded in the table header,
	// e.g. "CP866".
	Encoding string `toml:"encoding"`
	// DateUpperBound rejects date values above this day count as
	// corrupt. Zero keeps the default.
	DateUpperBound int64 `toml:"date_upper_bound"`
	// Snapshot copies table files to a temp directory before opening
	// them, for tables rewritten in place by a live application.
	Snapshot bool `toml:"snapshot"`

	Server ServerConfig `toml:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	DebounceMS int      `toml:"debounce_ms"`
	Origins    []string `toml:"origins"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			DebounceMS: 500,
		},
	}
}

// Load reads a TOML configuration file. Settings absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %s", undecoded[0].String())
	}
	return cfg, nil
}

// Debounce returns the server debounce as a duration.
func (c *ServerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}
