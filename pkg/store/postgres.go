package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/regnav/readiness-core/pkg/engine"
)

// PostgresStore is a ResultStore on PostgreSQL, for shared multi-instance
// deployments.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL with a lib/pq DSN and ensures the
// schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an existing handle without migrating, for tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scored_documents (
		result_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		policy_version TEXT NOT NULL,
		readiness_score DOUBLE PRECISION NOT NULL,
		risk_label TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		scored_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scored_documents_document
		ON scored_documents (document_id, scored_at);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("store: migrate postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, doc *engine.ScoredDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal result %s: %w", doc.ResultID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scored_documents
			(result_id, document_id, policy_id, policy_version, readiness_score, risk_label, fingerprint, scored_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ResultID, doc.DocumentID, doc.PolicyID, doc.PolicyVersion,
		doc.ReadinessScore, doc.RiskLabel, doc.Fingerprint, doc.ScoredAt, payload,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateResult
		}
		return fmt.Errorf("store: insert result %s: %w", doc.ResultID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, resultID string) (*engine.ScoredDocument, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM scored_documents WHERE result_id = $1`, resultID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get result %s: %w", resultID, err)
	}
	return decodePayload(string(payload))
}

func (s *PostgresStore) ListByDocument(ctx context.Context, documentID string) ([]*engine.ScoredDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM scored_documents WHERE document_id = $1 ORDER BY scored_at ASC, result_id ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list results for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []*engine.ScoredDocument
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		doc, err := decodePayload(string(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
