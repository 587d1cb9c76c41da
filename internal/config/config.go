// Package config loads the server configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimit configures the per-IP token bucket for the HTTP API.
type RateLimit struct {
	// Requests allowed per Window. 0 disables rate limiting.
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// Config is the server configuration. Flag values override file values.
type Config struct {
	// Addr is the address to listen on, e.g. "localhost:8080".
	Addr string `yaml:"addr"`
	// DataDir is the directory holding the collection files.
	DataDir string `yaml:"data_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Watch enables cache invalidation when collection files are edited
	// outside the server.
	Watch     bool      `yaml:"watch"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Default returns the configuration used when no file and no flags are given.
func Default() Config {
	return Config{
		Addr:     "localhost:8080",
		DataDir:  "./data",
		LogLevel: "info",
		Watch:    true,
		RateLimit: RateLimit{
			Requests: 100,
			Window:   time.Minute,
			Burst:    20,
		},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing file
// is not an error; it just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
