// Package storage persists produced outputs to object storage. The
// worker pool treats the returned durable reference as an opaque string.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore uploads a local file under a destination key and returns a
// durable reference for it.
type BlobStore interface {
	Store(ctx context.Context, localPath, key string) (string, error)
}

// S3Config holds the S3 client configuration. It is built once at
// startup and passed by value into NewS3Store; nothing here is global.
type S3Config struct {
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	PresignExpiry time.Duration
}

// S3Store uploads outputs to an S3 bucket.
type S3Store struct {
	cfg      S3Config
	uploader *manager.Uploader
	presign  *s3.PresignClient
	logger   *slog.Logger
}

// NewS3Store creates a store with its own S3 client.
func NewS3Store(cfg S3Config, logger *slog.Logger) *S3Store {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	return &S3Store{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		logger:   logger,
	}
}

// Store uploads the file at localPath under key. The durable reference
// is a time-limited presigned GET URL when an expiry is configured,
// otherwise the plain s3:// address.
func (s *S3Store) Store(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.cfg.Bucket, err)
	}

	s.logger.Debug("Object uploaded",
		slog.String("bucket", s.cfg.Bucket),
		slog.String("key", key),
	)

	if s.cfg.PresignExpiry > 0 {
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(s.cfg.PresignExpiry))
		if err == nil {
			return req.URL, nil
		}
		s.logger.Warn("Failed to presign object URL, falling back to s3 address",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}
