// Package adjudicate runs the claim adjudication pipeline: non-payable
// filtering, policy sub-limit matching and application, claim-level
// aggregation, and the final advisory sanity review. The pipeline is
// fail-fast: any oracle error aborts the whole claim.
package adjudicate

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mediclaim/claims-cli/internal/catalog"
	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

// nonPayableCategory is the reserved catalog category that terminally
// disallows an item.
const nonPayableCategory = catalog.NonPayableCategory

const (
	defaultClaimTimeout = 5 * time.Minute
	defaultCallTimeout  = 60 * time.Second
	defaultFanOutLimit  = 10
)

// Oracles bundles the capabilities the orchestrator depends on. All four are
// required; provider selection and failover live behind the interfaces.
type Oracles struct {
	Normalizer oracle.NormalizationOracle
	Matcher    oracle.RuleMatchOracle
	Applier    oracle.RuleApplyOracle
	Sanity     oracle.SanityOracle
}

// Orchestrator adjudicates one claim at a time per call. It holds no
// per-claim state and is safe for concurrent use.
type Orchestrator struct {
	oracles      Oracles
	claimTimeout time.Duration
	callTimeout  time.Duration
	fanOutLimit  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClaimTimeout bounds the whole adjudication of one claim.
func WithClaimTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.claimTimeout = d }
}

// WithCallTimeout bounds each individual oracle call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithFanOutLimit caps concurrent oracle calls within one stage.
func WithFanOutLimit(n int) Option {
	return func(o *Orchestrator) { o.fanOutLimit = n }
}

// NewOrchestrator validates the oracle set and returns a ready orchestrator.
func NewOrchestrator(oracles Oracles, opts ...Option) (*Orchestrator, error) {
	if oracles.Normalizer == nil || oracles.Matcher == nil || oracles.Applier == nil || oracles.Sanity == nil {
		return nil, eris.New("adjudicate: all four oracles are required")
	}
	o := &Orchestrator{
		oracles:      oracles,
		claimTimeout: defaultClaimTimeout,
		callTimeout:  defaultCallTimeout,
		fanOutLimit:  defaultFanOutLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Adjudicate runs the full pipeline on a canonical extraction record under
// the given policy. On any oracle failure the claim fails whole; no partial
// result is returned.
func (o *Orchestrator) Adjudicate(ctx context.Context, record model.ExtractionRecord, policy model.Policy) (*model.AdjudicatedClaim, *model.StageMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, o.claimTimeout)
	defer cancel()

	start := time.Now()
	log := zap.L().With(
		zap.String("policy_id", policy.PolicyID),
		zap.String("bill_no", record.BillNo.Get()),
	)

	items := make([]model.AdjudicatedLineItem, 0, len(record.LineItems))
	for _, li := range record.Items() {
		items = append(items, model.NewAdjudicatedLineItem(li))
	}

	claim := &model.AdjudicatedClaim{
		ClaimHeader:        record.Header(),
		PolicyID:           policy.PolicyID,
		Items:              items,
		TotalClaimedAmount: record.NetPayableAmount.Get(),
		AdjustmentsLog:     []string{},
	}
	metrics := &model.StageMetrics{ItemsProcessed: len(items)}

	if err := o.filterNonPayable(ctx, claim, metrics); err != nil {
		return nil, nil, err
	}
	if err := o.applyPolicyRules(ctx, claim, policy, metrics); err != nil {
		return nil, nil, err
	}
	o.aggregate(claim, policy)

	// Concurrent stages emit items out of document order; restore it.
	sort.Slice(claim.Items, func(i, j int) bool {
		return claim.Items[i].Ordinal < claim.Items[j].Ordinal
	})

	if err := o.sanityReview(ctx, claim, metrics); err != nil {
		return nil, nil, err
	}

	metrics.TotalTime = time.Since(start)
	log.Info("claim adjudicated",
		zap.Float64("total_claimed", claim.TotalClaimedAmount),
		zap.Float64("total_allowed", claim.TotalAllowedAmount),
		zap.Int("items", metrics.ItemsProcessed),
		zap.Int("non_payable", metrics.NonPayableCount),
		zap.Int("rules_applied", metrics.RulesApplied),
		zap.Duration("elapsed", metrics.TotalTime),
	)
	return claim, metrics, nil
}

// filterNonPayable classifies every item against the master catalog and
// terminally disallows the ones in the non-payable category. One aggregated
// log entry covers the whole stage.
func (o *Orchestrator) filterNonPayable(ctx context.Context, claim *model.AdjudicatedClaim, metrics *model.StageMetrics) error {
	stageStart := time.Now()
	defer func() { metrics.NonPayableTime = time.Since(stageStart) }()

	var disallowed []model.AdjudicatedLineItem
	var total float64
	for i := range claim.Items {
		it := &claim.Items[i]
		cls, err := o.classify(ctx, it.Description)
		if err != nil {
			return stageErr(StageNonPayable, it.Description, err)
		}
		if cls == nil || cls.Category != nonPayableCategory {
			continue
		}
		total += it.AllowedAmount
		it.AllowedAmount = 0
		it.DisallowedAmount = it.TotalAmount
		it.Reason = model.ReasonNonPayable
		disallowed = append(disallowed, *it)
	}

	metrics.NonPayableCount = len(disallowed)
	if total > 0 {
		claim.AdjustmentsLog = append(claim.AdjustmentsLog,
			nonPayableLogEntry(dedupedDescriptions(disallowed), total))
	}
	return nil
}

func (o *Orchestrator) classify(ctx context.Context, description string) (*oracle.Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.oracles.Normalizer.Classify(callCtx, description)
}

// applyPolicyRules runs the two concurrent fan-out stages: rule matching over
// all eligible items, then rule application over the matched ones. Each stage
// joins fully before the next begins.
func (o *Orchestrator) applyPolicyRules(ctx context.Context, claim *model.AdjudicatedClaim, policy model.Policy, metrics *model.StageMetrics) error {
	eligible := make([]int, 0, len(claim.Items))
	for i, it := range claim.Items {
		if it.Reason != model.ReasonNonPayable {
			eligible = append(eligible, i)
		}
	}
	ruleNames := policy.RuleNames()

	// Stage: matching.
	matchStart := time.Now()
	matched := make([]string, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fanOutLimit)
	for slot, idx := range eligible {
		it := claim.Items[idx]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, o.callTimeout)
			defer cancel()
			name, err := o.oracles.Matcher.MatchRule(callCtx, it.Description, ruleNames)
			if err != nil {
				return stageErr(StageRuleMatch, it.Description, err)
			}
			if name != "" {
				if _, ok := policy.SubLimits[name]; !ok {
					return stageErr(StageRuleMatch, it.Description,
						eris.Errorf("matched rule %q is not in the policy", name))
				}
			}
			matched[slot] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	metrics.RuleMatchTime = time.Since(matchStart)

	// Stage: application.
	applyStart := time.Now()
	defer func() { metrics.RuleApplyTime = time.Since(applyStart) }()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.fanOutLimit)
	applied := 0
	for slot, idx := range eligible {
		rule, ok := policy.SubLimits[matched[slot]]
		if matched[slot] == "" || !ok {
			continue
		}
		applied++
		it := claim.Items[idx]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, o.callTimeout)
			defer cancel()
			updated, err := o.oracles.Applier.ApplyRule(callCtx, it, rule, policy.SumInsured)
			if err != nil {
				return stageErr(StageRuleApply, it.Description, err)
			}
			if !updated.SplitConsistent() {
				return stageErr(StageRuleApply, it.Description,
					eris.Errorf("oracle returned inconsistent split: allowed %.2f + disallowed %.2f != total %.2f",
						updated.AllowedAmount, updated.DisallowedAmount, updated.TotalAmount))
			}
			if updated.DisallowedAmount > 0 && updated.Reason == model.ReasonNone {
				updated.Reason = model.ReasonSubLimit
			}
			updated.Ordinal = it.Ordinal
			claim.Items[idx] = updated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	metrics.RulesMatched = applied
	metrics.RulesApplied = applied

	var subLimitTotal float64
	for _, it := range claim.Items {
		if it.Reason == model.ReasonSubLimit {
			subLimitTotal += it.DisallowedAmount
		}
	}
	if subLimitTotal > 0 {
		claim.AdjustmentsLog = append(claim.AdjustmentsLog, subLimitLogEntry(subLimitTotal))
	}
	return nil
}

// aggregate computes claim-level totals: item sum, co-payment, and the sum
// insured cap, in that order.
func (o *Orchestrator) aggregate(claim *model.AdjudicatedClaim, policy model.Policy) {
	var total float64
	for _, it := range claim.Items {
		total += it.AllowedAmount
	}

	if policy.CoPaymentPercentage > 0 && total > 0 {
		coPay := total * policy.CoPaymentPercentage / 100
		claim.AdjustmentsLog = append(claim.AdjustmentsLog,
			coPayLogEntry(policy.CoPaymentPercentage, coPay))
		total -= coPay
	}

	if total > policy.SumInsured {
		total = policy.SumInsured
		claim.AdjustmentsLog = append(claim.AdjustmentsLog,
			sumInsuredCapLogEntry(policy.SumInsured))
	}
	claim.TotalAllowedAmount = total
}

// sanityReview attaches the advisory verdict. The verdict never changes
// totals; a failing oracle still fails the claim.
func (o *Orchestrator) sanityReview(ctx context.Context, claim *model.AdjudicatedClaim, metrics *model.StageMetrics) error {
	stageStart := time.Now()
	defer func() { metrics.SanityTime = time.Since(stageStart) }()

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	result, err := o.oracles.Sanity.Review(callCtx, *claim)
	if err != nil {
		return stageErr(StageSanity, "", err)
	}
	claim.Sanity = result
	return nil
}
