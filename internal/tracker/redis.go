package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Redis keeps processed links in a set
type Redis struct {
	logger zerolog.Logger
	rdb    *redis.Client
	key    string
}

// NewRedis connects to redisURL, either a redis:// URL or a host:port address
func NewRedis(ctx context.Context, logger zerolog.Logger, redisURL, key string) (*Redis, error) {
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	if key == "" {
		key = "threadshorts:processed"
	}

	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Debug().Str("addr", opts.Addr).Str("key", key).Msg("redis tracker connected")
	return &Redis{logger: logger, rdb: rdb, key: key}, nil
}

func (r *Redis) HasProcessed(ctx context.Context, link string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, r.key, link).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

func (r *Redis) MarkProcessed(ctx context.Context, link string) error {
	if err := r.rdb.SAdd(ctx, r.key, link).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
