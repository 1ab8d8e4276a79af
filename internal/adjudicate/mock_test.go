package adjudicate

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

// --- Normalization Mock ---

type mockNormalizer struct {
	mock.Mock
}

func (m *mockNormalizer) Classify(ctx context.Context, description string) (*oracle.Classification, error) {
	args := m.Called(ctx, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.Classification), args.Error(1)
}

// --- Rule Match Mock ---

type mockMatcher struct {
	mock.Mock
}

func (m *mockMatcher) MatchRule(ctx context.Context, description string, ruleNames []string) (string, error) {
	args := m.Called(ctx, description, ruleNames)
	return args.String(0), args.Error(1)
}

// --- Rule Apply Mock ---

type mockApplier struct {
	mock.Mock
}

func (m *mockApplier) ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error) {
	args := m.Called(ctx, item, rule, sumInsured)
	return args.Get(0).(model.AdjudicatedLineItem), args.Error(1)
}

// --- Sanity Mock ---

type mockSanity struct {
	mock.Mock
}

func (m *mockSanity) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	args := m.Called(ctx, claim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SanityResult), args.Error(1)
}

// --- Ensure interface compliance ---
var (
	_ oracle.NormalizationOracle = (*mockNormalizer)(nil)
	_ oracle.RuleMatchOracle     = (*mockMatcher)(nil)
	_ oracle.RuleApplyOracle     = (*mockApplier)(nil)
	_ oracle.SanityOracle        = (*mockSanity)(nil)
)
