// Package config provides configuration management for livedoc.
//
// Config file locations (priority order):
//  1. $LIVEDOC_CONFIG
//  2. ./livedoc.yaml
//  3. ~/.config/livedoc/config.yaml
//  4. /etc/livedoc/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"livedoc/internal/domain"
	"livedoc/internal/driver"
)

// Config is the full server configuration.
type Config struct {
	Version     int                     `yaml:"version"`
	Environment string                  `yaml:"environment"`
	TestMode    bool                    `yaml:"test_mode"`
	LogLevel    string                  `yaml:"log_level"`
	HTTP        HTTPConfig              `yaml:"http"`
	Drivers     map[string]DriverConfig `yaml:"drivers"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DriverConfig declares one driver instance.
type DriverConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load finds and loads the config file, or returns defaults if none found.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// FindConfigPath returns the first config file location that exists.
func FindConfigPath() string {
	if env := os.Getenv("LIVEDOC_CONFIG"); env != "" {
		return env
	}

	candidates := []string{"./livedoc.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "livedoc", "config.yaml"))
	}
	candidates = append(candidates, "/etc/livedoc/config.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		Environment: string(domain.EnvironmentServer),
		LogLevel:    "info",
		HTTP:        HTTPConfig{Addr: ":3000"},
		Drivers: map[string]DriverConfig{
			"sqlite": {
				Enabled:  true,
				Settings: map[string]any{"path": "./livedoc.db"},
			},
		},
	}
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Environment == "" {
		c.Environment = string(domain.EnvironmentServer)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
}

func (c *Config) validate() error {
	if !domain.Environment(c.Environment).Valid() {
		return fmt.Errorf("invalid environment %q, want %q or %q",
			c.Environment, domain.EnvironmentServer, domain.EnvironmentClient)
	}
	return nil
}

// Props translates the config into registry init properties. Enabled
// drivers are the requested set; their settings are passed through.
func (c *Config) Props() driver.Props {
	props := driver.Props{
		Environment: domain.Environment(c.Environment),
		TestMode:    c.TestMode,
		Settings:    make(map[string]map[string]any, len(c.Drivers)),
	}
	for name, dc := range c.Drivers {
		if !dc.Enabled {
			continue
		}
		props.Requested = append(props.Requested, name)
		props.Settings[name] = dc.Settings
	}
	return props
}
