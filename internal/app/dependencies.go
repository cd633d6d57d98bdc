// Package app wires configuration, backends and services into the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/db"
	"github.com/noah-isme/toko-cart/internal/obs"
)

// Dependencies holds the backends shared by the API process. DB, Redis and
// TaskClient stay nil when their URL is not configured.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	TaskClient *asynq.Client
	Registry   *prometheus.Registry
}

// Open connects every configured backend.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Registry: obs.NewRegistry()}

	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnBoot {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.Obs.ServiceName)
		if err != nil {
			return nil, err
		}
		deps.DB = pool
	} else {
		logger.Warn().Msg("DATABASE_URL not set; catalog and coupons are kept in memory")
	}

	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
	} else {
		logger.Warn().Msg("REDIS_URL not set; sessions and rate limits are kept in memory")
	}

	if cfg.TasksEnabled {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("parse task redis url: %w", err)
		}
		deps.TaskClient = asynq.NewClient(opt)
	}
	return deps, nil
}

// NewRedis connects an instrumented redis client.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Close releases every open backend.
func (d *Dependencies) Close() error {
	if d == nil {
		return nil
	}
	var errs error
	if d.TaskClient != nil {
		errs = errors.Join(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = errors.Join(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errs
}
