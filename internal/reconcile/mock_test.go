package reconcile

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

// --- Similarity Mock ---

type mockSimilarityOracle struct {
	mock.Mock
}

func (m *mockSimilarityOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(float64), args.Error(1)
}

// --- Extraction Mock ---

type mockExtractionOracle struct {
	mock.Mock
	name string
}

func (m *mockExtractionOracle) Name() string {
	return m.name
}

func (m *mockExtractionOracle) Extract(ctx context.Context, doc oracle.Document) (*model.ExtractionRecord, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionRecord), args.Error(1)
}

// --- Ensure interface compliance ---
var (
	_ oracle.SimilarityOracle = (*mockSimilarityOracle)(nil)
	_ oracle.ExtractionOracle = (*mockExtractionOracle)(nil)
)
