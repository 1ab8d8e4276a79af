package oracle

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mediclaim/claims-cli/internal/model"
)

// AdjudicationOracle bundles the three per-claim reasoning capabilities a
// single provider offers.
type AdjudicationOracle interface {
	Name() string
	RuleMatchOracle
	RuleApplyOracle
	SanityOracle
}

// Failover tries the primary provider and falls back to the secondary when
// the primary fails for any reason other than a payload it produced itself
// being rejected twice. Validation failures fail over too: a different
// provider may well produce a conforming payload.
type Failover struct {
	primary  AdjudicationOracle
	fallback AdjudicationOracle
}

// NewFailover wires a primary and fallback adjudication provider.
func NewFailover(primary, fallback AdjudicationOracle) *Failover {
	return &Failover{primary: primary, fallback: fallback}
}

var _ AdjudicationOracle = (*Failover)(nil)

func (f *Failover) Name() string {
	return f.primary.Name() + "->" + f.fallback.Name()
}

func failover[T any](ctx context.Context, f *Failover, operation string,
	call func(ctx context.Context, o AdjudicationOracle) (T, error)) (T, error) {

	out, err := call(ctx, f.primary)
	if err == nil {
		return out, nil
	}
	// A dead context means the fallback would fail the same way.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out, err
	}

	zap.L().Warn("primary oracle failed, using fallback",
		zap.String("operation", operation),
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.fallback.Name()),
		zap.Error(err))

	return call(ctx, f.fallback)
}

func (f *Failover) MatchRule(ctx context.Context, description string, ruleNames []string) (string, error) {
	return failover(ctx, f, "match_rule", func(ctx context.Context, o AdjudicationOracle) (string, error) {
		return o.MatchRule(ctx, description, ruleNames)
	})
}

func (f *Failover) ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error) {
	return failover(ctx, f, "apply_rule", func(ctx context.Context, o AdjudicationOracle) (model.AdjudicatedLineItem, error) {
		return o.ApplyRule(ctx, item, rule, sumInsured)
	})
}

func (f *Failover) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	return failover(ctx, f, "sanity_review", func(ctx context.Context, o AdjudicationOracle) (*model.SanityResult, error) {
		return o.Review(ctx, claim)
	})
}
