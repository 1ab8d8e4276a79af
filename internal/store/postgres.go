package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mediclaim/claims-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id          TEXT PRIMARY KEY,
	policy_id   TEXT NOT NULL,
	canonical   JSONB NOT NULL,
	adjudicated JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_claims_policy_id ON claims(policy_id);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveClaim(ctx context.Context, canonical model.ExtractionRecord, adjudicated model.AdjudicatedClaim) (*ClaimRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	canonicalJSON, err := json.Marshal(canonical)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal canonical record")
	}
	adjudicatedJSON, err := json.Marshal(adjudicated)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal adjudicated claim")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO claims (id, policy_id, canonical, adjudicated, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, adjudicated.PolicyID, canonicalJSON, adjudicatedJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert claim")
	}

	return &ClaimRecord{
		ID:          id,
		PolicyID:    adjudicated.PolicyID,
		Canonical:   canonical,
		Adjudicated: adjudicated,
		CreatedAt:   now,
	}, nil
}

func (s *PostgresStore) GetClaim(ctx context.Context, claimID string) (*ClaimRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE id = $1`,
		claimID,
	)
	rec, err := scanClaimPG(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrClaimNotFound, "id %s", claimID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get claim %s", claimID)
	}
	return rec, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]ClaimRecord, error) {
	query := `SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE 1=1`
	var args []any

	if filter.PolicyID != "" {
		args = append(args, filter.PolicyID)
		query += ` AND policy_id = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claims")
	}
	defer rows.Close()

	var records []ClaimRecord
	for rows.Next() {
		rec, err := scanClaimPG(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list claims iterate")
}

func scanClaimPG(row pgx.Row) (*ClaimRecord, error) {
	var rec ClaimRecord
	var canonicalJSON, adjudicatedJSON []byte

	if err := row.Scan(&rec.ID, &rec.PolicyID, &canonicalJSON, &adjudicatedJSON, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(canonicalJSON, &rec.Canonical); err != nil {
		return nil, eris.Wrap(err, "unmarshal canonical record")
	}
	if err := json.Unmarshal(adjudicatedJSON, &rec.Adjudicated); err != nil {
		return nil, eris.Wrap(err, "unmarshal adjudicated claim")
	}
	return &rec, nil
}
