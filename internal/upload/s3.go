package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/config"
)

// S3 stores shorts in a bucket under <prefix>/<uuid>/<file name>
type S3 struct {
	logger zerolog.Logger
	svc    *s3.S3
	cfg    config.S3Config
}

func NewS3(logger zerolog.Logger, cfg config.S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &S3{logger: logger, svc: s3.New(sess), cfg: cfg}, nil
}

func (s *S3) key(video string) string {
	return path.Join(s.cfg.Prefix, uuid.NewString(), filepath.Base(video))
}

func (s *S3) Upload(ctx context.Context, video, title string) (Result, error) {
	file, err := os.Open(video)
	if err != nil {
		return Result{}, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	key := s.key(video)
	_, err = s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to upload object to s3")
		return Result{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	s.logger.Info().Str("title", title).Str("location", location).Msg("uploaded short")
	return Result{Backend: "s3", Location: location}, nil
}
