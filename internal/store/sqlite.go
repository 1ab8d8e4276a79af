package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mediclaim/claims-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id          TEXT PRIMARY KEY,
	policy_id   TEXT NOT NULL,
	canonical   TEXT NOT NULL,
	adjudicated TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_claims_policy_id ON claims(policy_id);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveClaim(ctx context.Context, canonical model.ExtractionRecord, adjudicated model.AdjudicatedClaim) (*ClaimRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	canonicalJSON, err := json.Marshal(canonical)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal canonical record")
	}
	adjudicatedJSON, err := json.Marshal(adjudicated)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal adjudicated claim")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO claims (id, policy_id, canonical, adjudicated, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, adjudicated.PolicyID, string(canonicalJSON), string(adjudicatedJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert claim")
	}

	return &ClaimRecord{
		ID:          id,
		PolicyID:    adjudicated.PolicyID,
		Canonical:   canonical,
		Adjudicated: adjudicated,
		CreatedAt:   now,
	}, nil
}

func (s *SQLiteStore) GetClaim(ctx context.Context, claimID string) (*ClaimRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE id = ?`,
		claimID,
	)
	rec, err := scanClaim(row)
	if err == errNoClaimRow {
		return nil, eris.Wrapf(ErrClaimNotFound, "id %s", claimID)
	}
	return rec, err
}

func (s *SQLiteStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]ClaimRecord, error) {
	query := `SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE 1=1`
	var args []any

	if filter.PolicyID != "" {
		query += ` AND policy_id = ?`
		args = append(args, filter.PolicyID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claims")
	}
	defer rows.Close()

	var records []ClaimRecord
	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list claims iterate")
}

// helpers

var errNoClaimRow = eris.New("sqlite: no claim row")

type scannable interface {
	Scan(dest ...any) error
}

func scanClaim(row scannable) (*ClaimRecord, error) {
	var rec ClaimRecord
	var canonicalJSON, adjudicatedJSON string

	err := row.Scan(&rec.ID, &rec.PolicyID, &canonicalJSON, &adjudicatedJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errNoClaimRow
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan claim")
	}

	if err := json.Unmarshal([]byte(canonicalJSON), &rec.Canonical); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal canonical record")
	}
	if err := json.Unmarshal([]byte(adjudicatedJSON), &rec.Adjudicated); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal adjudicated claim")
	}
	return &rec, nil
}
