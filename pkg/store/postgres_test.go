package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSaveInsertsAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStoreWithDB(db)
	doc := sampleDoc("r-1", "doc-1", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(doc)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO scored_documents").
		WithArgs(doc.ResultID, doc.DocumentID, doc.PolicyID, doc.PolicyVersion,
			doc.ReadinessScore, doc.RiskLabel, doc.Fingerprint, doc.ScoredAt, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStoreWithDB(db)

	mock.ExpectQuery("SELECT payload FROM scored_documents WHERE result_id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStoreWithDB(db)
	a := sampleDoc("r-1", "doc-1", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	b := sampleDoc("r-2", "doc-1", time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC))
	payloadA, _ := json.Marshal(a)
	payloadB, _ := json.Marshal(b)

	mock.ExpectQuery("SELECT payload FROM scored_documents WHERE document_id").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payloadA).AddRow(payloadB))

	got, err := s.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r-1", got[0].ResultID)
	assert.Equal(t, "r-2", got[1].ResultID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
