package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/workhabits-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// NewRedis connects to Redis for the analytics cache. A disabled configuration
// yields a nil client, which the cache repository treats as always missing.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewUniversalClient(Options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr(cfg), err)
	}

	return client, nil
}

// Options maps the config onto go-redis universal options.
func Options(cfg config.RedisConfig) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:    []string{addr(cfg)},
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func addr(cfg config.RedisConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
