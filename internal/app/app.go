// Package app wires configuration into a running Service: the Postgres
// pool, the ingestion lock, the source opener and the store.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/officesearch/internal/config"
	"github.com/JonMunkholm/officesearch/internal/core"
	"github.com/JonMunkholm/officesearch/internal/fetch"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/store/postgres"
)

// App owns every long-lived resource behind a Service.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Store   *postgres.Store
	Opener  *fetch.Opener
	Lock    ingest.Lock
	Service *core.Service

	redis *redis.Client
}

// Open connects to Postgres (and Redis when configured), migrates when
// DB_MIGRATE_ON_START is set, and builds the Service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Pool:   pool,
		Store:  postgres.New(pool),
		Opener: fetch.New(cfg.Storage.GCSCredentialsFile),
	}

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a.Lock, a.redis, err = NewLock(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Service = core.NewService(a.Store, core.Options{
		Lock:              a.Lock,
		Opener:            a.Opener,
		Sources:           &cfg.Sources,
		PostcodeBatchSize: cfg.Ingest.PostcodeBatchSize,
		ResultLimit:       cfg.Search.ResultLimit,
		IngestTimeout:     cfg.Ingest.Timeout,
	})
	return a, nil
}

// OpenPool parses the database URL, applies pool settings and pings.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// NewLock returns a Redis-backed lock when REDIS_ADDR is set and an
// in-process lock otherwise. The Redis client, if any, is returned for
// closing.
func NewLock(ctx context.Context, cfg *config.Config) (ingest.Lock, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return ingest.NewRunLock(cfg.Ingest.LockWait), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	slog.Info("using redis ingestion lock", "addr", cfg.Redis.Addr, "key", cfg.Redis.LockKey)
	return ingest.NewRedisLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, cfg.Ingest.LockWait), client, nil
}

// Close releases everything Open acquired.
func (a *App) Close() {
	if err := a.Opener.Close(); err != nil {
		slog.Warn("close storage client", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("close redis client", "error", err)
		}
	}
	a.Pool.Close()
}
