// Package store persists adjudicated claims. The canonical extraction and
// the adjudicated result are stored as opaque JSON blobs keyed by a claim id;
// persistence is a post-condition of adjudication, never a dependency of it.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mediclaim/claims-cli/internal/model"
)

// ErrClaimNotFound is returned when no claim exists for the given id.
var ErrClaimNotFound = eris.New("store: claim not found")

// ClaimRecord is one persisted adjudication outcome.
type ClaimRecord struct {
	ID          string                 `json:"id"`
	PolicyID    string                 `json:"policy_id"`
	Canonical   model.ExtractionRecord `json:"canonical"`
	Adjudicated model.AdjudicatedClaim `json:"adjudicated"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ClaimFilter specifies criteria for listing claims.
type ClaimFilter struct {
	PolicyID string `json:"policy_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the claim persistence interface.
type Store interface {
	SaveClaim(ctx context.Context, canonical model.ExtractionRecord, adjudicated model.AdjudicatedClaim) (*ClaimRecord, error)
	GetClaim(ctx context.Context, claimID string) (*ClaimRecord, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]ClaimRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
