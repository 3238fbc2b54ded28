package rulepack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Source fetches raw rulepack bytes from wherever policy is authored. The
// loader never mutates a source; validation failures surface from Load, not
// from the fetch.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Describe() string
}

// SourceType selects the policy source backend.
type SourceType string

const (
	SourceTypeFS  SourceType = "fs"
	SourceTypeS3  SourceType = "s3"
	SourceTypeGCS SourceType = "gcs"
)

// FileSource reads a rulepack from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource creates a filesystem-backed policy source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads the policy file.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// Describe identifies the source for logs and errors.
func (s *FileSource) Describe() string {
	return "file:" + s.Path
}

// NewSourceFromEnv creates a policy source based on environment variables.
//
// Environment variables:
//   - RULEPACK_SOURCE_TYPE: "fs" (default), "s3", or "gcs"
//   - RULEPACK_DIR: directory of rulepack YAML files for the fs source
//     (default: "config/regulators")
//
// For S3:
//   - RULEPACK_S3_BUCKET (required)
//   - RULEPACK_S3_REGION or AWS_REGION
//   - RULEPACK_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - RULEPACK_S3_PREFIX (optional)
//
// For GCS:
//   - RULEPACK_GCS_BUCKET (required)
//   - RULEPACK_GCS_PREFIX (optional)
//
// The id argument is the regulator namespace; the object fetched is
// "<prefix><id>.yaml".
func NewSourceFromEnv(ctx context.Context, id string) (Source, error) {
	sourceType := SourceType(os.Getenv("RULEPACK_SOURCE_TYPE"))
	if sourceType == "" {
		sourceType = SourceTypeFS
	}

	switch sourceType {
	case SourceTypeFS:
		dir := os.Getenv("RULEPACK_DIR")
		if dir == "" {
			dir = filepath.Join("config", "regulators")
		}
		return NewFileSource(filepath.Join(dir, id+".yaml")), nil
	case SourceTypeS3:
		return newS3SourceFromEnv(ctx, id)
	case SourceTypeGCS:
		return newGCSSourceFromEnv(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported rulepack source type: %s", sourceType)
	}
}
