package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinIOStore implementa Store sobre un bucket S3-compatible.
type MinIOStore struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewMinIOStore(cfg MinIOConfig, logger *zap.Logger) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "edunexus-media"
	}
	return &MinIOStore{
		mc:        mc,
		bucket:    bucket,
		publicURL: publicBase(cfg.PublicURL, cfg.Endpoint, cfg.UseSSL, bucket),
		logger:    logger,
	}, nil
}

// EnsureBucket crea el bucket si no existe.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		s.logger.Info("media bucket created", zap.String("bucket", s.bucket))
	}
	return nil
}

func (s *MinIOStore) Upload(ctx context.Context, kind Kind, file File) (string, error) {
	if !kind.Accepts(file.ContentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, file.ContentType)
	}
	key := objectKey(kind, file.Name)
	_, err := s.mc.PutObject(ctx, s.bucket, key, file.Body, file.Size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete borra el objeto referenciado por url. URLs ajenas al bucket se ignoran.
func (s *MinIOStore) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return nil
	}
	return s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinIOStore) keyFromURL(url string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

func publicBase(publicURL, endpoint string, useSSL bool, bucket string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/") + "/" + bucket
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(endpoint, "/") + "/" + bucket
}
