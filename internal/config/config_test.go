package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("catalog")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Fatalf("port=%s", cfg.Server.Port)
	}
	if cfg.Catalog.FetchTimeout != 5*time.Second {
		t.Fatalf("fetch_timeout=%s", cfg.Catalog.FetchTimeout)
	}
	if cfg.Catalog.ImagePrefix != "MoviesImagenes" {
		t.Fatalf("image_prefix=%s", cfg.Catalog.ImagePrefix)
	}

	web, err := Load("web")
	if err != nil {
		t.Fatalf("Load web: %v", err)
	}
	if web.Server.Port != "8080" {
		t.Fatalf("web port=%s", web.Server.Port)
	}
	if web.Controls.MaxScopes != 1024 || web.Controls.ScopeTTL != 30*time.Minute {
		t.Fatalf("controls=%+v", web.Controls)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	t.Setenv("PORT", "9090")
	t.Setenv("CATALOG_URL", "http://catalog:3000")
	t.Setenv("CATALOG_FETCH_TIMEOUT", "750ms")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONTROLS_SCOPE_TTL", "5m")
	t.Setenv("CONTROLS_MAX_SCOPES", "64")

	cfg, err := Load("web")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port=%s", cfg.Server.Port)
	}
	if cfg.Catalog.URL != "http://catalog:3000" {
		t.Fatalf("catalog url=%s", cfg.Catalog.URL)
	}
	if cfg.Catalog.FetchTimeout != 750*time.Millisecond {
		t.Fatalf("fetch_timeout=%s", cfg.Catalog.FetchTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Fatalf("cors=%v", cfg.Server.CORSOrigins)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics should be enabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level=%s", cfg.Logging.Level)
	}
	if cfg.Controls.ScopeTTL != 5*time.Minute || cfg.Controls.MaxScopes != 64 {
		t.Fatalf("controls=%+v", cfg.Controls)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "favorites:\n  path: /tmp/favs.db\ncatalog:\n  carousel_size: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("web")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Favorites.Path != "/tmp/favs.db" {
		t.Fatalf("favorites path=%s", cfg.Favorites.Path)
	}
	if cfg.Catalog.CarouselSize != 4 {
		t.Fatalf("carousel_size=%d", cfg.Catalog.CarouselSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load("web")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "Level") {
		t.Fatalf("err=%v", err)
	}
}
