package rulepack

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Source fetches rulepack YAML from an S3 bucket. Policy authors publish
// packs as "<prefix><id>.yaml" objects; the source is read-only.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
}

// S3SourceConfig holds configuration for S3Source.
type S3SourceConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Key      string // Object key, e.g. "rulepacks/qcb.yaml"
}

// NewS3Source creates a new S3-backed policy source.
func NewS3Source(ctx context.Context, cfg S3SourceConfig) (*S3Source, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

// Fetch downloads the rulepack object.
func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", s.key, err)
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}

// Describe identifies the source for logs and errors.
func (s *S3Source) Describe() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func newS3SourceFromEnv(ctx context.Context, id string) (Source, error) {
	bucket := os.Getenv("RULEPACK_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("RULEPACK_S3_BUCKET is required for S3 policy source")
	}

	region := os.Getenv("RULEPACK_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg := S3SourceConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("RULEPACK_S3_ENDPOINT"),
		Key:      os.Getenv("RULEPACK_S3_PREFIX") + id + ".yaml",
	}

	return NewS3Source(ctx, cfg)
}
