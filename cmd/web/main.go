package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"StreamCatalog/internal/catalog"
	"StreamCatalog/internal/config"
	"StreamCatalog/internal/controls"
	"StreamCatalog/internal/favorites"
	"StreamCatalog/internal/web"
	"StreamCatalog/pkg/kit"
)

func main() {
	service := "web"
	_ = godotenv.Load()

	cfg, err := config.Load(service)
	if err != nil {
		boot := kit.NewLogger(service)
		boot.Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLoggerLevel(service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	metrics := kit.NewMetrics(reg)

	client := catalog.NewClient(cfg.Catalog.URL, catalog.ClientOptions{
		Timeout:         cfg.Catalog.FetchTimeout,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerOpenFor:  cfg.Catalog.BreakerOpenFor,
		Log:             log.Named("catalog"),
	})

	storage, closeStorage, err := openStorage(cfg.Favorites.Path, log)
	if err != nil {
		log.Fatal("open favorites storage failed", zap.Error(err))
	}

	hub := controls.NewHub(controls.HubOptions{
		Log:            log.Named("controls"),
		AllowedOrigins: cfg.Server.CORSOrigins,
		ScopeTTL:       cfg.Controls.ScopeTTL,
		MaxScopes:      cfg.Controls.MaxScopes,
	})

	register := favorites.NewRegister(storage, favorites.Options{
		Notifier:    hub,
		ImagePrefix: cfg.Catalog.ImagePrefix,
		Log:         log.Named("favorites"),
		Metrics:     metrics,
		Service:     service,
	})

	s := &web.Server{
		Catalog:       catalog.NewStore(client, log.Named("catalog")),
		Lookup:        favorites.ProviderFunc(catalog.NewTitleLookup(client).LookupTitle),
		Favorites:     register,
		Hub:           hub,
		Log:           log,
		Metrics:       metrics,
		Service:       service,
		ImagePrefix:   cfg.Catalog.ImagePrefix,
		CarouselSize:  cfg.Catalog.CarouselSize,
		ToggleLimiter: kit.NewIPRateLimiter(cfg.Favorites.ToggleRateLimit, cfg.Favorites.ToggleWindow),
	}

	h, err := web.NewHandler(s, web.Deps{CatalogURL: cfg.Catalog.URL}, web.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		Metrics:        metrics,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})
	if err != nil {
		log.Fatal("init web handler failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(":"+cfg.Server.Port, h, log, hub.Close, closeStorage); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStorage(path string, log *zap.Logger) (favorites.Storage, func(context.Context) error, error) {
	if path == "" {
		log.Warn("favorites path empty, favorites are kept in memory")
		return favorites.NewMemStorage(nil), func(context.Context) error { return nil }, nil
	}

	s, err := favorites.OpenBoltStorage(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
