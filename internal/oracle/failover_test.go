package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mediclaim/claims-cli/internal/model"
)

func newFailoverPair() (*mockAdjudicationOracle, *mockAdjudicationOracle, *Failover) {
	primary := &mockAdjudicationOracle{name: "gemini"}
	fallback := &mockAdjudicationOracle{name: "openai"}
	return primary, fallback, NewFailover(primary, fallback)
}

func TestFailover_PrimarySucceeds(t *testing.T) {
	primary, fallback, f := newFailoverPair()
	rules := []string{"Room Charges"}

	primary.On("MatchRule", mock.Anything, "Room Rent", rules).Return("Room Charges", nil)

	matched, err := f.MatchRule(context.Background(), "Room Rent", rules)
	require.NoError(t, err)
	assert.Equal(t, "Room Charges", matched)
	fallback.AssertNotCalled(t, "MatchRule", mock.Anything, mock.Anything, mock.Anything)
}

func TestFailover_FallsBackOnPrimaryError(t *testing.T) {
	primary, fallback, f := newFailoverPair()
	rules := []string{"Room Charges"}

	primary.On("MatchRule", mock.Anything, "Room Rent", rules).Return("", errors.New("gemini: status 500"))
	fallback.On("MatchRule", mock.Anything, "Room Rent", rules).Return("Room Charges", nil)

	matched, err := f.MatchRule(context.Background(), "Room Rent", rules)
	require.NoError(t, err)
	assert.Equal(t, "Room Charges", matched)
	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestFailover_FallsBackOnValidationError(t *testing.T) {
	primary, fallback, f := newFailoverPair()
	rules := []string{"Room Charges"}

	primary.On("MatchRule", mock.Anything, "Room Rent", rules).
		Return("", &ValidationError{Oracle: "gemini", Field: "applicable_rule_name", Msg: "bad"})
	fallback.On("MatchRule", mock.Anything, "Room Rent", rules).Return("", nil)

	matched, err := f.MatchRule(context.Background(), "Room Rent", rules)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestFailover_BothFail(t *testing.T) {
	primary, fallback, f := newFailoverPair()

	primary.On("Review", mock.Anything, mock.Anything).Return(nil, errors.New("gemini down"))
	fallback.On("Review", mock.Anything, mock.Anything).Return(nil, errors.New("openai down"))

	_, err := f.Review(context.Background(), modelClaim())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai down")
}

func TestFailover_NoFallbackOnCanceledContext(t *testing.T) {
	primary, fallback, f := newFailoverPair()

	ctx, cancel := context.WithCancel(context.Background())
	primary.On("ApplyRule", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(model.AdjudicatedLineItem{}, context.Canceled)

	_, err := f.ApplyRule(ctx, ruleApplyItem(), modelRuleFixed(), 1000000)
	require.ErrorIs(t, err, context.Canceled)
	fallback.AssertNotCalled(t, "ApplyRule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFailover_Name(t *testing.T) {
	_, _, f := newFailoverPair()
	assert.Equal(t, "gemini->openai", f.Name())
}

func TestFailover_ApplyRuleFallsBack(t *testing.T) {
	primary, fallback, f := newFailoverPair()

	item := ruleApplyItem()
	applied := item
	applied.AllowedAmount = 22500
	applied.DisallowedAmount = 7500
	applied.Reason = model.ReasonSubLimit

	primary.On("ApplyRule", mock.Anything, item, mock.Anything, 1000000.0).
		Return(model.AdjudicatedLineItem{}, errors.New("gemini agent failed"))
	fallback.On("ApplyRule", mock.Anything, item, mock.Anything, 1000000.0).
		Return(applied, nil)

	got, err := f.ApplyRule(context.Background(), item, modelRuleFixed(), 1000000)
	require.NoError(t, err)
	assert.InDelta(t, 22500, got.AllowedAmount, 0.001)
}
