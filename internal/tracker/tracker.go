// Package tracker remembers which threads were already turned into shorts.
package tracker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/config"
)

// Tracker records processed thread links
type Tracker interface {
	HasProcessed(ctx context.Context, link string) (bool, error)
	MarkProcessed(ctx context.Context, link string) error
	Close() error
}

// New opens the tracker for the configured backend
func New(ctx context.Context, logger zerolog.Logger, cfg config.TrackerConfig) (Tracker, error) {
	logger = logger.With().Str("component", "tracker").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case "file", "":
		t, err := NewFile(logger, cfg.Path)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "redis":
		t, err := NewRedis(ctx, logger, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "postgres":
		t, err := NewPostgres(ctx, logger, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown tracker backend %q", cfg.Backend)
	}
}
