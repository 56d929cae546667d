// Package config reads and writes the global ~/.msgcenter/config.toml.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global configuration file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backoff BackoffConfig `toml:"backoff"`
	User    UserConfig    `toml:"user"`
}

// ServerConfig selects the message server endpoint. Production is the
// default; UseLocal switches to the local development endpoint.
type ServerConfig struct {
	URL      string `toml:"url"`
	LocalURL string `toml:"local_url"`
	UseLocal bool   `toml:"use_local"`
}

// Endpoint returns the WebSocket URL the channel should dial.
func (s ServerConfig) Endpoint() string {
	if s.UseLocal {
		return s.LocalURL
	}
	return s.URL
}

// BackoffConfig bounds the reconnect policy. GiveUpAfterMS of zero
// means retry until the channel is explicitly closed.
type BackoffConfig struct {
	InitialMS   int64 `toml:"initial_ms"`
	MaxMS       int64 `toml:"max_ms"`
	GiveUpAfter int64 `toml:"give_up_after_ms"`
}

// Initial returns the first retry interval.
func (b BackoffConfig) Initial() time.Duration { return time.Duration(b.InitialMS) * time.Millisecond }

// Max returns the retry interval ceiling.
func (b BackoffConfig) Max() time.Duration { return time.Duration(b.MaxMS) * time.Millisecond }

// GiveUp returns how long to keep retrying, zero meaning forever.
func (b BackoffConfig) GiveUp() time.Duration { return time.Duration(b.GiveUpAfter) * time.Millisecond }

// UserConfig holds the default identity used for frames the client
// originates. Authentication itself happens outside this client.
type UserConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	Role string `toml:"role"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:      "wss://api-intransparency.onrender.com/ws",
			LocalURL: "ws://localhost:3001/ws",
		},
		Backoff: BackoffConfig{
			InitialMS: 1000,
			MaxMS:     30000,
		},
		User: UserConfig{Role: "student"},
	}
}

// Load reads config from the given path, applying defaults for any
// field the file leaves unset. Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Backoff.InitialMS <= 0 {
		cfg.Backoff.InitialMS = 1000
	}
	if cfg.Backoff.MaxMS <= 0 {
		cfg.Backoff.MaxMS = 30000
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
