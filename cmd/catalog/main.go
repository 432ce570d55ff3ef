package main

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"StreamCatalog/internal/config"
	"StreamCatalog/internal/movies"
	"StreamCatalog/pkg/kit"
)

func main() {
	service := "catalog"
	_ = godotenv.Load()

	cfg, err := config.Load(service)
	if err != nil {
		boot := kit.NewLogger(service)
		boot.Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLoggerLevel(service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	store, cleanup, err := openStore(cfg.Database, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}

	s := &movies.Server{Store: store, Log: log}

	reg := prometheus.NewRegistry()
	h := movies.NewHandler(s, movies.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	if err := kit.RunHTTPServer(":"+cfg.Server.Port, h, log, cleanup); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(cfg config.DatabaseConfig, log *zap.Logger) (movies.Store, func(context.Context) error, error) {
	if cfg.URL == "" {
		log.Info("no database configured, using seeded in-memory catalog")
		return movies.NewSeededMemStore(), func(context.Context) error { return nil }, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	store := movies.NewPostgresStore(db)
	if err := store.Ping(context.Background()); err != nil {
		// Serve anyway; /readyz reports the outage.
		log.Warn("database not reachable at startup", zap.Error(err))
	}

	return store, func(context.Context) error { return db.Close() }, nil
}
