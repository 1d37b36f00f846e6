// Package cache holds the Redis-backed pieces shared by the API and the
// cron worker: the zone availability cache and the job lock.
package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"smartpark-backend/internal/config"
	"smartpark-backend/internal/logger"
)

// NewClient returns nil when Redis is not configured.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
