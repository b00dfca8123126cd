package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Client handles S3/MinIO operations for the archive module. Unlike a
// request-path dependency, it never needs to confirm the bucket exists
// before construction succeeds: archival is a side channel (SPEC_FULL.md
// §3.3), so bucket creation is deferred to the first upload that needs it
// and memoized in bucketReady, instead of gateway startup blocking on, or
// failing because of, an unreachable or not-yet-provisioned S3 endpoint.
type S3Client struct {
	client *s3.Client
	config S3Config
	logger *slog.Logger

	bucketReady atomic.Bool
}

// NewS3Client creates a new S3 client configured against cfg's endpoint,
// which may point at a self-hosted MinIO instance as well as real S3. It
// rejects a KeyTemplate missing the {id} placeholder: without a per-batch
// unique segment, two flushes landing in the same partition would silently
// overwrite each other's Parquet file.
func NewS3Client(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !strings.Contains(cfg.KeyTemplate, "{id}") {
		return nil, fmt.Errorf("archive: key template %q has no {id} placeholder, uploads would collide", cfg.KeyTemplate)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	c := &S3Client{
		client: client,
		config: cfg,
		logger: logger.With("component", "archive-s3-client"),
	}
	c.logger.Info("s3 client created", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return c, nil
}

// ensureBucket creates the configured bucket on first use and remembers
// success so every later upload skips the existence round-trip. A bucket
// that another gateway instance raced to create first is treated as ready
// too, since CreateBucket returning "already owned by you" means the
// bucket is now usable regardless of which instance created it.
func (c *S3Client) ensureBucket(ctx context.Context) error {
	if c.bucketReady.Load() {
		return nil
	}

	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.config.Bucket)}); err == nil {
		c.bucketReady.Store(true)
		return nil
	}

	c.logger.Info("creating bucket", "bucket", c.config.Bucket)
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.config.Bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("archive: create bucket: %w", err)
	}
	c.bucketReady.Store(true)
	return nil
}

// Upload ensures the target bucket exists, then uploads a Parquet-encoded
// batch under key.
func (c *S3Client) Upload(ctx context.Context, key string, data []byte) error {
	if err := c.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-parquet"),
	})
	if err != nil {
		return fmt.Errorf("archive: upload to s3: %w", err)
	}
	c.logger.Debug("uploaded to s3", "key", key, "size_bytes", len(data))
	return nil
}

// GenerateKey renders c.config.KeyTemplate for the given partition,
// substituting its {prefix}/{model}/{year}/{month}/{day}/{hour}/{id}
// placeholders. Each batch gets a fresh {id} (a UUID) so repeated flushes
// for the same partition never collide on the same key.
func (c *S3Client) GenerateKey(model string, year, month, day, hour int) string {
	replacer := strings.NewReplacer(
		"{prefix}", c.config.Prefix,
		"{model}", model,
		"{year}", strconv.Itoa(year),
		"{month}", fmt.Sprintf("%02d", month),
		"{day}", fmt.Sprintf("%02d", day),
		"{hour}", fmt.Sprintf("%02d", hour),
		"{id}", uuid.New().String(),
	)
	return replacer.Replace(c.config.KeyTemplate)
}

// HealthCheck verifies the S3 endpoint is reachable, provisioning the
// bucket if no upload has done so yet — a gateway that has never archived
// a batch should still surface a broken S3 endpoint at /healthz rather
// than waiting for the first flush to discover it.
func (c *S3Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.ensureBucket(ctx); err != nil {
		return fmt.Errorf("archive: s3 health check: %w", err)
	}
	return nil
}
