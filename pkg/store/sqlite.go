package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/regnav/readiness-core/pkg/engine"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a ResultStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite result store at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle, for tests.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scored_documents (
		result_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		policy_version TEXT NOT NULL,
		readiness_score REAL NOT NULL,
		risk_label TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		scored_at DATETIME NOT NULL,
		payload JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scored_documents_document
		ON scored_documents (document_id, scored_at);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("store: migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, doc *engine.ScoredDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal result %s: %w", doc.ResultID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scored_documents
			(result_id, document_id, policy_id, policy_version, readiness_score, risk_label, fingerprint, scored_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ResultID, doc.DocumentID, doc.PolicyID, doc.PolicyVersion,
		doc.ReadinessScore, doc.RiskLabel, doc.Fingerprint,
		doc.ScoredAt.UTC().Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateResult
		}
		return fmt.Errorf("store: insert result %s: %w", doc.ResultID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, resultID string) (*engine.ScoredDocument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM scored_documents WHERE result_id = ?`, resultID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get result %s: %w", resultID, err)
	}
	return decodePayload(payload)
}

func (s *SQLiteStore) ListByDocument(ctx context.Context, documentID string) ([]*engine.ScoredDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM scored_documents WHERE document_id = ? ORDER BY scored_at ASC, result_id ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list results for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []*engine.ScoredDocument
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		doc, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodePayload(payload string) (*engine.ScoredDocument, error) {
	var doc engine.ScoredDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("store: decode result payload: %w", err)
	}
	return &doc, nil
}
