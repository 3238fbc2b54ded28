//go:build gcp

package rulepack

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCSSource fetches rulepack YAML from a Google Cloud Storage bucket.
type GCSSource struct {
	client *storage.Client
	bucket string
	object string
}

// GCSSourceConfig holds configuration for GCSSource.
type GCSSourceConfig struct {
	Bucket string
	Object string // Object path, e.g. "rulepacks/qcb.yaml"
}

// NewGCSSource creates a new GCS-backed policy source (uses ADC credentials).
func NewGCSSource(ctx context.Context, cfg GCSSourceConfig) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSSource{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Fetch downloads the rulepack object.
func (s *GCSSource) Fetch(ctx context.Context) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs read failed for %s: %w", s.object, err)
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}

// Describe identifies the source for logs and errors.
func (s *GCSSource) Describe() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

func newGCSSourceFromEnv(ctx context.Context, id string) (Source, error) {
	bucket := os.Getenv("RULEPACK_GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("RULEPACK_GCS_BUCKET is required for GCS policy source")
	}

	cfg := GCSSourceConfig{
		Bucket: bucket,
		Object: os.Getenv("RULEPACK_GCS_PREFIX") + id + ".yaml",
	}

	return NewGCSSource(ctx, cfg)
}
