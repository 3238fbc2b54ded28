package store

import (
	"context"
	"sort"
	"sync"

	"github.com/regnav/readiness-core/pkg/engine"
	"github.com/regnav/readiness-core/pkg/gaps"
	"github.com/regnav/readiness-core/pkg/signal"
)

// MemoryStore is an in-memory ResultStore for tests and single-process use.
type MemoryStore struct {
	mu         sync.RWMutex
	byResult   map[string]*engine.ScoredDocument
	byDocument map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byResult:   make(map[string]*engine.ScoredDocument),
		byDocument: make(map[string][]string),
	}
}

func (s *MemoryStore) Save(_ context.Context, doc *engine.ScoredDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byResult[doc.ResultID]; exists {
		return ErrDuplicateResult
	}
	s.byResult[doc.ResultID] = cloneDoc(doc)
	s.byDocument[doc.DocumentID] = append(s.byDocument[doc.DocumentID], doc.ResultID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, resultID string) (*engine.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byResult[resultID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) ListByDocument(_ context.Context, documentID string) ([]*engine.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDocument[documentID]
	out := make([]*engine.ScoredDocument, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneDoc(s.byResult[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoredAt.Before(out[j].ScoredAt)
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// cloneDoc copies a scored document including its slice fields, so stored
// results and returned results never share backing arrays with the caller.
func cloneDoc(doc *engine.ScoredDocument) *engine.ScoredDocument {
	copied := *doc
	if doc.Gaps != nil {
		copied.Gaps = append([]gaps.Entry(nil), doc.Gaps...)
	}
	if doc.Anomalies != nil {
		copied.Anomalies = append([]signal.Anomaly(nil), doc.Anomalies...)
	}
	if doc.Explanation.GapLines != nil {
		copied.Explanation.GapLines = append([]string(nil), doc.Explanation.GapLines...)
	}
	return &copied
}
