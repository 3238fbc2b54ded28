// Package store persists scored documents. All backends are append-only:
// results are immutable once written, and rescoring a document appends a new
// result instead of replacing the old one.
package store

import (
	"context"
	"errors"

	"github.com/regnav/readiness-core/pkg/engine"
)

// ErrNotFound is returned when no result exists for the requested id.
var ErrNotFound = errors.New("store: result not found")

// ErrDuplicateResult is returned when a result id is written twice.
var ErrDuplicateResult = errors.New("store: result id already exists")

// ResultStore is an append-only log of scored documents.
type ResultStore interface {
	// Save appends one scored document. Fails with ErrDuplicateResult when
	// the result id was already written.
	Save(ctx context.Context, doc *engine.ScoredDocument) error

	// Get fetches one result by result id.
	Get(ctx context.Context, resultID string) (*engine.ScoredDocument, error)

	// ListByDocument returns every result for a document, oldest first.
	ListByDocument(ctx context.Context, documentID string) ([]*engine.ScoredDocument, error)

	// Close releases backend resources.
	Close() error
}
