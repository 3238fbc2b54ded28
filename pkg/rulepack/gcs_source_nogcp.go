//go:build !gcp

package rulepack

import (
	"context"
	"fmt"
)

func newGCSSourceFromEnv(ctx context.Context, id string) (Source, error) {
	return nil, fmt.Errorf("GCS policy source is not enabled in this build (use -tags gcp)")
}
