// Package config provides the single startup configuration loader.
//
// Precedence for every setting is environment variable over persisted
// config file over built-in default. No other component reads the
// environment; the loaded Config is passed explicitly to everything that
// needs it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/live-labs/secretsync/internal/backend"
)

// Environment variables recognized by the loader.
const (
	EnvBackend  = "SECRETSYNC_BACKEND"
	EnvOffline  = "SECRETSYNC_OFFLINE"
	EnvPassword = "SECRETSYNC_PASSWORD"
	EnvTimeout  = "SECRETSYNC_TIMEOUT"
	EnvDir      = "SECRETSYNC_DIR"
)

// DefaultBackend is used when neither environment nor config file selects
// a backend.
const DefaultBackend = "bitwarden"

const defaultTimeout = 30 * time.Second

var ErrBadBackend = errors.New("unknown backend in configuration")

// Config holds everything the process needs, resolved once at startup.
type Config struct {
	// Backend is the active provider kind. Exactly one backend is
	// active at a time.
	Backend string

	// Offline short-circuits the engine: no backend calls at all.
	Offline bool

	// Timeout bounds every backend subprocess call.
	Timeout time.Duration

	// Password, when set from the environment, skips interactive auth.
	// Never persisted.
	Password string

	// BaseDir hosts config.json, the secret schema, the state database
	// and the session cache.
	BaseDir string

	SchemaPath   string
	StatePath    string
	PassStoreDir string
}

// fileConfig is the persisted preference file shape. Only a subset of
// settings may be persisted; credentials never are.
type fileConfig struct {
	Backend      string `json:"backend,omitempty"`
	TimeoutSec   int    `json:"timeoutSeconds,omitempty"`
	PassStoreDir string `json:"passStoreDir,omitempty"`
}

// Load resolves the full configuration. Malformed persisted config is a
// hard failure: it aborts before any backend call.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve home directory: %w", err)
	}

	baseDir := os.Getenv(EnvDir)
	if baseDir == "" {
		baseDir = filepath.Join(home, ".config", "secretsync")
	}

	cfg := &Config{
		Backend:      DefaultBackend,
		Timeout:      defaultTimeout,
		BaseDir:      baseDir,
		SchemaPath:   filepath.Join(baseDir, "secrets.json"),
		StatePath:    filepath.Join(baseDir, "state.db"),
		PassStoreDir: filepath.Join(home, ".password-store"),
	}

	if err := cfg.applyFile(filepath.Join(baseDir, "config.json")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if !validBackend(cfg.Backend) {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrBadBackend, cfg.Backend, backend.Kinds())
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("malformed config %s: %w", path, err)
	}
	if fc.Backend != "" {
		c.Backend = fc.Backend
	}
	if fc.TimeoutSec > 0 {
		c.Timeout = time.Duration(fc.TimeoutSec) * time.Second
	}
	if fc.PassStoreDir != "" {
		c.PassStoreDir = fc.PassStoreDir
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvOffline); v != "" {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvOffline, v, err)
		}
		c.Offline = offline
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s=%q", EnvTimeout, v)
		}
		c.Timeout = d
	}
	c.Password = os.Getenv(EnvPassword)
	return nil
}

// Save persists the user's backend preference. Credentials are never
// written.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.BaseDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	fc := fileConfig{
		Backend:    c.Backend,
		TimeoutSec: int(c.Timeout / time.Second),
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(c.BaseDir, "config.json")
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func validBackend(kind string) bool {
	for _, k := range backend.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
