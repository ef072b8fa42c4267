// Package media выдаёт клиенту ссылки на файлы панорам.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-portal/internal/common/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Signer превращает source панорамы в ссылку, по которой её можно открыть во viewer.
type Signer interface {
	URL(ctx context.Context, source string) (string, error)
}

// ============================================================
// Passthrough
// ============================================================

// PassthroughSigner используется без объектного хранилища: source уже является URL.
type PassthroughSigner struct{}

func (PassthroughSigner) URL(_ context.Context, source string) (string, error) {
	return source, nil
}

// ============================================================
// S3
// ============================================================

// S3Signer подписывает ключи объектов presigned GET ссылками.
// http(s) источники возвращаются как есть.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	log     *zap.Logger
}

func NewS3Signer(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Signer{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
		log:     log,
	}, nil
}

func (s *S3Signer) URL(ctx context.Context, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source, nil
	}

	bucket, key := s.bucket, source
	if rest, ok := strings.CutPrefix(source, "s3://"); ok {
		b, k, found := strings.Cut(rest, "/")
		if !found || k == "" {
			return "", fmt.Errorf("invalid s3 source %q", source)
		}
		bucket, key = b, k
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", errors.New("empty object key")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		s.log.Warn("presign failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// New выбирает реализацию по конфигурации.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Signer, error) {
	if !cfg.StorageEnabled() {
		return PassthroughSigner{}, nil
	}
	return NewS3Signer(ctx, cfg.Storage, log)
}
