// Package config loads service configuration in three layers: struct
// defaults, an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const PathEnvVar = "CONFIG_PATH"

var DefaultPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Favorites FavoritesConfig `koanf:"favorites"`
	Controls  ControlsConfig  `koanf:"controls"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port        string   `koanf:"port" validate:"required,numeric"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig: an empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"min=0"`
}

type CatalogConfig struct {
	URL             string        `koanf:"url" validate:"required,url"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout" validate:"min=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerOpenFor  time.Duration `koanf:"breaker_open_for"`
	ImagePrefix     string        `koanf:"image_prefix"`
	CarouselSize    int           `koanf:"carousel_size" validate:"min=1"`
}

type FavoritesConfig struct {
	// Path of the bbolt file; empty keeps favorites in memory only.
	Path            string        `koanf:"path"`
	ToggleRateLimit int           `koanf:"toggle_rate_limit" validate:"min=0"`
	ToggleWindow    time.Duration `koanf:"toggle_window"`
}

// ControlsConfig bounds the rendered pages whose buttons are kept for live
// updates.
type ControlsConfig struct {
	ScopeTTL  time.Duration `koanf:"scope_ttl" validate:"min=0"`
	MaxScopes int           `koanf:"max_scopes" validate:"min=1"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

func defaultConfig(service string) *Config {
	port := "8080"
	if service == "catalog" {
		port = "3000"
	}
	return &Config{
		Server: ServerConfig{
			Port:        port,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Catalog: CatalogConfig{
			URL:             "http://localhost:3000",
			FetchTimeout:    5 * time.Second,
			BreakerFailures: 5,
			BreakerOpenFor:  30 * time.Second,
			ImagePrefix:     "MoviesImagenes",
			CarouselSize:    6,
		},
		Favorites: FavoritesConfig{
			Path:            "data/favorites.db",
			ToggleRateLimit: 60,
			ToggleWindow:    time.Minute,
		},
		Controls: ControlsConfig{
			ScopeTTL:  30 * time.Minute,
			MaxScopes: 1024,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration for service ("catalog" or "web").
func Load(service string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(service), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envKeys = map[string]string{
	"port":                        "server.port",
	"cors_origins":                "server.cors_origins",
	"database_url":                "database.url",
	"db_max_open_conns":           "database.max_open_conns",
	"db_max_idle_conns":           "database.max_idle_conns",
	"catalog_url":                 "catalog.url",
	"catalog_fetch_timeout":       "catalog.fetch_timeout",
	"catalog_breaker_failures":    "catalog.breaker_failures",
	"catalog_breaker_open_for":    "catalog.breaker_open_for",
	"image_prefix":                "catalog.image_prefix",
	"carousel_size":               "catalog.carousel_size",
	"favorites_path":              "favorites.path",
	"favorites_toggle_rate_limit": "favorites.toggle_rate_limit",
	"favorites_toggle_window":     "favorites.toggle_window",
	"controls_scope_ttl":          "controls.scope_ttl",
	"controls_max_scopes":         "controls.max_scopes",
	"metrics_enabled":             "metrics.enabled",
	"metrics_token":               "metrics.token",
	"log_level":                   "logging.level",
}

// envKey maps PORT -> server.port etc.; unknown variables are dropped.
func envKey(key string) string {
	return envKeys[strings.ToLower(key)]
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
