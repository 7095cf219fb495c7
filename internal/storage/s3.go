package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/leadloop/leadloop/internal/config"
)

const uploadTimeout = 30 * time.Second

// Uploader persists a named blob and returns a stable public locator.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// S3Store keeps resume attachments in a bucket. Keys are prefixed with a
// fresh UUID so repeated uploads of the same filename never collide.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
	logger *slog.Logger
}

func NewS3Store(ctx context.Context, log *slog.Logger, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: log.With(slog.String("service", "storage")),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := fmt.Sprintf("resumes/%s-%s", uuid.NewString(), filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	locator := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, url.PathEscape(key))
	s.logger.Info("attachment stored",
		slog.String("key", key),
		slog.Int("bytes", len(data)))
	return locator, nil
}

var _ Uploader = (*S3Store)(nil)
