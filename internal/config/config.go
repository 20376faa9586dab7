// Package config loads terminal configuration from an optional YAML file
// with environment-variable overrides. A .env file in the working
// directory is honored when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Terminal roles.
const (
	RoleSender   = "sender"
	RoleReceiver = "receiver"
)

// Config is the full terminal configuration. Precedence: defaults, then
// the YAML file, then environment variables.
type Config struct {
	// HTTPAddr is the terminal server's listen address.
	HTTPAddr string `yaml:"http_addr" env:"RELAY_HTTP_ADDR"`

	// Upstream is the origin the shell and static assets are fetched
	// from.
	Upstream string `yaml:"upstream" env:"RELAY_UPSTREAM"`

	// DBPath is the SQLite database path backing the document store.
	DBPath string `yaml:"db_path" env:"RELAY_DB_PATH"`

	// Collection is the order collection name.
	Collection string `yaml:"collection" env:"RELAY_COLLECTION"`

	// Role selects the terminal role: sender or receiver. Only the
	// receiver chimes on new orders.
	Role string `yaml:"role" env:"RELAY_ROLE"`

	// CacheVersion names the asset cache; bump it on every deploy that
	// changes shell content or fetch-policy logic.
	CacheVersion string `yaml:"cache_version" env:"RELAY_CACHE_VERSION"`

	// AssetPrefix is the bundler's static-asset path prefix.
	AssetPrefix string `yaml:"asset_prefix" env:"RELAY_ASSET_PREFIX"`

	// ShellPaths are the app shell entry points.
	ShellPaths []string `yaml:"shell_paths" env:"RELAY_SHELL_PATHS" envSeparator:","`

	// ClearHour and ClearMinute set the daily cleanup trigger window.
	ClearHour   int `yaml:"clear_hour" env:"RELAY_CLEAR_HOUR"`
	ClearMinute int `yaml:"clear_minute" env:"RELAY_CLEAR_MINUTE"`

	// CleanupInterval is the cleanup scheduler's polling cadence.
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"RELAY_CLEANUP_INTERVAL"`

	// MenuPath points at a catalog file; empty means the embedded
	// catalog.
	MenuPath string `yaml:"menu_path" env:"RELAY_MENU_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Upstream:        "http://localhost:5173",
		DBPath:          "relay.db",
		Collection:      "orders",
		Role:            RoleReceiver,
		CacheVersion:    "relay-app-shell-v2",
		AssetPrefix:     "/assets/",
		ShellPaths:      []string{"/", "/index.html"},
		ClearHour:       1,
		ClearMinute:     0,
		CleanupInterval: 30 * time.Second,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A missing .env file is not an
// error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Role != RoleSender && c.Role != RoleReceiver {
		return fmt.Errorf("config: invalid role %q (want %q or %q)", c.Role, RoleSender, RoleReceiver)
	}
	if c.ClearHour < 0 || c.ClearHour > 23 {
		return fmt.Errorf("config: clear_hour %d out of range", c.ClearHour)
	}
	if c.ClearMinute < 0 || c.ClearMinute > 59 {
		return fmt.Errorf("config: clear_minute %d out of range", c.ClearMinute)
	}
	return nil
}
