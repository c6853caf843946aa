package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ehr/homecare/internal/config"
	"github.com/ehr/homecare/internal/domain/draft"
	"github.com/ehr/homecare/internal/platform/db"
)

// draftBackend is the configured draft repository with its health checks.
type draftBackend struct {
	Repo   draft.Repository
	Checks []healthCheck
	Close  func()
}

func openDraftBackend(ctx context.Context, cfg *config.Config) (*draftBackend, error) {
	switch cfg.DraftBackend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &draftBackend{
			Repo: draft.NewRedisRepo(client),
			Checks: []healthCheck{{
				Name: "redis",
				Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			}},
			Close: func() { client.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &draftBackend{
			Repo:   draft.NewPostgresRepo(pool),
			Checks: []healthCheck{db.PoolCheck(pool)},
			Close:  pool.Close,
		}, nil

	default:
		return &draftBackend{Repo: draft.NewMemoryRepo(), Close: func() {}}, nil
	}
}
