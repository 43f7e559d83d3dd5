// Package upload publishes rendered shorts.
package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/config"
)

var ErrUploadFailed = errors.New("upload failed")

// Result describes where a short was published
type Result struct {
	Backend  string
	Location string
}

// Uploader publishes a rendered video
type Uploader interface {
	Upload(ctx context.Context, video, title string) (Result, error)
}

// New creates the uploader for the configured backend
func New(ctx context.Context, logger zerolog.Logger, cfg config.UploadConfig) (Uploader, error) {
	logger = logger.With().Str("component", "upload").Str("backend", cfg.Backend).Logger()

	var (
		u   Uploader
		err error
	)
	switch cfg.Backend {
	case "none", "":
		return None{}, nil
	case "command":
		u, err = NewCommand(logger, cfg.Command)
	case "s3":
		u, err = NewS3(logger, cfg.S3)
	case "youtube":
		u, err = NewYouTube(ctx, logger, cfg.YouTube)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// None keeps the short on disk
type None struct{}

func (None) Upload(_ context.Context, video, _ string) (Result, error) {
	return Result{Backend: "none", Location: video}, nil
}
