package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	pkglogger "github.com/devring/devring-backend/pkg/logger"
)

// S3Client signs URLs for private objects on S3/R2/MinIO compatible storage
type S3Client struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	basePath   string // prefix for all objects (e.g. "avatars/")
	presignTTL time.Duration
}

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	Endpoint        string // e.g. https://xxx.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	BasePath        string
	ForcePathStyle  bool // true for MinIO/R2
	PresignTTL      time.Duration
}

// NewS3Client creates a new S3-compatible storage client
func NewS3Client(cfg S3Config) (*S3Client, error) {
	opts := func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}

	client := s3.New(s3.Options{}, opts)

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	pkglogger.GetLogger().Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 storage client initialized")

	return &S3Client{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		basePath:   strings.TrimRight(cfg.BasePath, "/"),
		presignTTL: ttl,
	}, nil
}

// GetPresignedURL generates a pre-signed URL for direct download
func (c *S3Client) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(key)),
	}

	result, err := c.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}

	return result.URL, nil
}

// SignURLs presigns a batch of object keys in one call, returning a
// key-to-URL map. Keys that fail to sign are omitted rather than failing
// the batch.
func (c *S3Client) SignURLs(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if _, ok := out[key]; ok {
			continue
		}
		url, err := c.GetPresignedURL(ctx, key, c.presignTTL)
		if err != nil {
			pkglogger.GetLogger().Warn().Err(err).Str("key", key).Msg("presign failed for key")
			continue
		}
		out[key] = url
	}
	if len(out) == 0 && len(keys) > 0 {
		return nil, fmt.Errorf("presign failed for all %d keys", len(keys))
	}
	return out, nil
}

func (c *S3Client) objectKey(key string) string {
	if c.basePath == "" {
		return key
	}
	return c.basePath + "/" + strings.TrimLeft(key, "/")
}
