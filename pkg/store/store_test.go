package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regnav/readiness-core/pkg/engine"
	"github.com/regnav/readiness-core/pkg/explain"
	"github.com/regnav/readiness-core/pkg/gaps"
)

func sampleDoc(resultID, documentID string, scoredAt time.Time) *engine.ScoredDocument {
	return &engine.ScoredDocument{
		ResultID:       resultID,
		DocumentID:     documentID,
		PolicyID:       "qcb",
		PolicyVersion:  "1.0.0",
		ReadinessScore: 0.42,
		RiskLabel:      "high",
		Gaps: []gaps.Entry{
			{DomainID: "aml_kyc", Weight: 2.0, Severity: 0.8, Impact: 1.6, Rank: 1},
		},
		Fingerprint: "sha256:deadbeef",
		ScoredAt:    scoredAt,
	}
}

// Both embedded backends honor the same append-only contract.
func testStores(t *testing.T) map[string]ResultStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	return map[string]ResultStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestSaveAndGet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			doc := sampleDoc("r-1", "doc-1", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
			require.NoError(t, s.Save(ctx, doc))

			got, err := s.Get(ctx, "r-1")
			require.NoError(t, err)
			assert.Equal(t, doc.DocumentID, got.DocumentID)
			assert.Equal(t, doc.ReadinessScore, got.ReadinessScore)
			assert.Equal(t, doc.Gaps, got.Gaps)
			assert.Equal(t, doc.Fingerprint, got.Fingerprint)
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			_, err := s.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSaveRejectsDuplicateResultID(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()
			doc := sampleDoc("r-1", "doc-1", time.Now().UTC())

			require.NoError(t, s.Save(ctx, doc))
			assert.ErrorIs(t, s.Save(ctx, doc), ErrDuplicateResult)
		})
	}
}

func TestListByDocumentOldestFirst(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()
			base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

			// Insert out of chronological order.
			require.NoError(t, s.Save(ctx, sampleDoc("r-2", "doc-1", base.Add(time.Hour))))
			require.NoError(t, s.Save(ctx, sampleDoc("r-1", "doc-1", base)))
			require.NoError(t, s.Save(ctx, sampleDoc("r-9", "doc-other", base)))

			got, err := s.ListByDocument(ctx, "doc-1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "r-1", got[0].ResultID)
			assert.Equal(t, "r-2", got[1].ResultID)
		})
	}
}

func TestListByDocumentEmpty(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			got, err := s.ListByDocument(context.Background(), "unknown")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStoredResultsIsolatedFromCallerMutation(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			doc := sampleDoc("r-1", "doc-1", time.Now().UTC())
			doc.Explanation = explain.Explanation{
				Summary:  "Document doc-1 scored 0.4200 (high).",
				GapLines: []string{"1. aml_kyc: severity 0.8000, weight 2.0000"},
			}
			require.NoError(t, s.Save(ctx, doc))

			// Mutating the saved document afterwards must not reach the store.
			doc.Gaps[0].DomainID = "tampered"
			doc.Explanation.GapLines[0] = "tampered"

			got, err := s.Get(ctx, "r-1")
			require.NoError(t, err)
			assert.Equal(t, "aml_kyc", got.Gaps[0].DomainID)
			assert.Equal(t, "1. aml_kyc: severity 0.8000, weight 2.0000", got.Explanation.GapLines[0])

			// Nor may mutating one read corrupt subsequent reads.
			got.Gaps[0].DomainID = "tampered"
			again, err := s.Get(ctx, "r-1")
			require.NoError(t, err)
			assert.Equal(t, "aml_kyc", again.Gaps[0].DomainID)
		})
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	done := make(chan error, 50)
	for i := 0; i < 50; i++ {
		go func(i int) {
			done <- s.Save(ctx, sampleDoc(fmt.Sprintf("r-%d", i), "doc-1", time.Now().UTC()))
		}(i)
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, <-done)
	}

	got, err := s.ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, got, 50)
}
