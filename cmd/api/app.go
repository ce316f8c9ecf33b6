package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/config"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/postgres"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/messaging/redis"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
)

// app holds what every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *sqlx.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logger.SetGlobal(l)

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	registry := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		logger:   l,
		db:       db,
		registry: registry,
		metrics:  metrics.NewMetrics("salud", "", registry),
	}, nil
}

func (a *app) redisClient(ctx context.Context) (*goredis.Client, error) {
	client, err := redis.NewClient(ctx, redis.Config{
		URL:          a.cfg.Redis.URL,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		RetryBackoff: a.cfg.Redis.RetryBackoff,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error(err, "Failed to close database")
	}
}

// redisPinger adapts the redis client to the readiness check.
type redisPinger struct {
	client goredis.UniversalClient
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
