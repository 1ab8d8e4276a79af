package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_SaveClaim(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO claims`).
		WithArgs(pgxmock.AnyArg(), "MVP1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveClaim(context.Background(), testCanonical(), testAdjudicated("MVP1"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "MVP1", saved.PolicyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClaim(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	canonicalJSON, err := json.Marshal(testCanonical())
	require.NoError(t, err)
	adjudicatedJSON, err := json.Marshal(testAdjudicated("MVP1"))
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE id = \$1`).
		WithArgs("claim-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "policy_id", "canonical", "adjudicated", "created_at"}).
			AddRow("claim-1", "MVP1", canonicalJSON, adjudicatedJSON, now))

	got, err := s.GetClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.Equal(t, "claim-1", got.ID)
	assert.Equal(t, "MVP1", got.PolicyID)
	assert.Equal(t, "gemini+openai", got.Canonical.Provider)
	assert.InDelta(t, 9000, got.Adjudicated.TotalAllowedAmount, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClaim_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE id = \$1`).
		WithArgs("nonexistent-claim").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetClaim(context.Background(), "nonexistent-claim")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClaimNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClaims_FilterByPolicy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	canonicalJSON, err := json.Marshal(testCanonical())
	require.NoError(t, err)
	adjudicatedJSON, err := json.Marshal(testAdjudicated("MVP1"))
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE 1=1 AND policy_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("MVP1", 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "policy_id", "canonical", "adjudicated", "created_at"}).
			AddRow("claim-1", "MVP1", canonicalJSON, adjudicatedJSON, now).
			AddRow("claim-2", "MVP1", canonicalJSON, adjudicatedJSON, now.Add(-time.Minute)))

	records, err := s.ListClaims(context.Background(), ClaimFilter{PolicyID: "MVP1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "claim-1", records[0].ID)
	assert.Equal(t, "claim-2", records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClaims_LimitOffset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, policy_id, canonical, adjudicated, created_at FROM claims WHERE 1=1 ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "policy_id", "canonical", "adjudicated", "created_at"}))

	records, err := s.ListClaims(context.Background(), ClaimFilter{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS claims`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
