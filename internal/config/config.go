// Package config loads dgwatch.yaml (or .json) and applies defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given. A missing default file is not an error.
const DefaultPath = "dgwatch.yaml"

// Config is the dgwatch configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Watcher WatcherConfig `yaml:"watcher" json:"watcher"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// StoreConfig locates persisted scenes.
type StoreConfig struct {
	// Scene is a scene directory or a redis:// URL.
	Scene  string `yaml:"scene" json:"scene"`
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
	TTL    string `yaml:"ttl" json:"ttl"`
}

// WatcherConfig tunes the connection watcher.
type WatcherConfig struct {
	Teardown string `yaml:"teardown" json:"teardown"`
}

// ServerConfig configures `dgwatch serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "warn", Format: "text"},
		Store:   StoreConfig{Scene: filepath.Join(".dgwatch", "scenes"), Name: "default", Prefix: "dgwatch:scene:"},
		Watcher: WatcherConfig{Teardown: "all"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. YAML unless the extension is .json.
// If path is DefaultPath and does not exist, the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that have a fixed vocabulary.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if _, err := c.Store.TTLDuration(); err != nil {
		return err
	}
	return nil
}

// TTLDuration parses Store.TTL. Empty means no expiry.
func (s StoreConfig) TTLDuration() (time.Duration, error) {
	if s.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("store.ttl: %w", err)
	}
	return d, nil
}

// IsRedis reports whether the scene location is a Redis URL.
func (s StoreConfig) IsRedis() bool {
	return strings.HasPrefix(s.Scene, "redis://") || strings.HasPrefix(s.Scene, "rediss://")
}
