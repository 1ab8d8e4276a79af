package model

import "time"

// amountTolerance bounds float drift in the allowed+disallowed==total invariant.
const amountTolerance = 1e-6

// LineItem is a single itemized charge once adjudication begins. Ordinal is
// the item's stable position in the canonical record.
type LineItem struct {
	Ordinal     int     `json:"ordinal"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalAmount float64 `json:"total_amount"`
}

// DisallowReason identifies why an item-level amount was disallowed.
type DisallowReason string

const (
	ReasonNone       DisallowReason = ""
	ReasonNonPayable DisallowReason = "non_payable"
	ReasonSubLimit   DisallowReason = "sub_limit_capped"
)

// Text returns the human-readable sentence for the reason, with the oracle's
// detail appended when present.
func (r DisallowReason) Text(detail string) string {
	var base string
	switch r {
	case ReasonNonPayable:
		base = "Non-payable item as per IRDAI guidelines."
	case ReasonSubLimit:
		base = "Capped by policy sub-limit."
	default:
		return detail
	}
	if detail != "" {
		return base + " " + detail
	}
	return base
}

// ItemStatus is the derived adjudication state of a line item. It is never
// stored; it follows from the allowed/disallowed split.
type ItemStatus string

const (
	StatusAllowed          ItemStatus = "Allowed"
	StatusPartiallyAllowed ItemStatus = "PartiallyAllowed"
	StatusDisallowed       ItemStatus = "Disallowed"
)

// AdjudicatedLineItem is a line item with its allowed/disallowed split.
// Invariant: AllowedAmount + DisallowedAmount == TotalAmount within 1e-6.
type AdjudicatedLineItem struct {
	LineItem

	AllowedAmount    float64        `json:"allowed_amount"`
	DisallowedAmount float64        `json:"disallowed_amount"`
	Reason           DisallowReason `json:"reason,omitempty"`
	ReasonDetail     string         `json:"reason_detail,omitempty"`
}

// NewAdjudicatedLineItem starts an item in its initial fully-allowed state.
func NewAdjudicatedLineItem(item LineItem) AdjudicatedLineItem {
	return AdjudicatedLineItem{
		LineItem:      item,
		AllowedAmount: item.TotalAmount,
	}
}

// Status derives the adjudication state from the amount split.
func (it AdjudicatedLineItem) Status() ItemStatus {
	switch {
	case it.TotalAmount == 0:
		return StatusAllowed
	case it.AllowedAmount > 0 && it.DisallowedAmount > 0:
		return StatusPartiallyAllowed
	case it.AllowedAmount > 0:
		return StatusAllowed
	default:
		return StatusDisallowed
	}
}

// SplitConsistent reports whether the allowed/disallowed split sums back to
// the item total within tolerance.
func (it AdjudicatedLineItem) SplitConsistent() bool {
	diff := it.AllowedAmount + it.DisallowedAmount - it.TotalAmount
	return diff >= -amountTolerance && diff <= amountTolerance
}

// SanityFlag is one entry of the fixed sanity-review flag taxonomy.
type SanityFlag string

const (
	FlagCalculationError      SanityFlag = "Calculation Error"
	FlagLogicInconsistency    SanityFlag = "Logic Inconsistency"
	FlagHighCostAnomaly       SanityFlag = "High Cost Anomaly"
	FlagMissingInformation    SanityFlag = "Missing Information"
	FlagPolicyMisinterpretation SanityFlag = "Policy Misinterpretation"
)

// KnownSanityFlag reports whether s belongs to the fixed taxonomy.
func KnownSanityFlag(s string) bool {
	switch SanityFlag(s) {
	case FlagCalculationError, FlagLogicInconsistency, FlagHighCostAnomaly,
		FlagMissingInformation, FlagPolicyMisinterpretation:
		return true
	}
	return false
}

// SanityResult is the advisory verdict of the final sanity review. It never
// changes totals or item statuses.
type SanityResult struct {
	IsReasonable bool         `json:"is_reasonable"`
	Reasoning    string       `json:"reasoning"`
	Flags        []SanityFlag `json:"flags"`
}

// AdjudicatedClaim is the final output of the adjudication pipeline: the
// claim header, every line item with its split, the running adjustments log,
// and the advisory sanity verdict.
type AdjudicatedClaim struct {
	ClaimHeader

	PolicyID string                `json:"policy_id"`
	Items    []AdjudicatedLineItem `json:"adjudicated_line_items"`

	TotalClaimedAmount float64 `json:"total_claimed_amount"`
	TotalAllowedAmount float64 `json:"total_allowed_amount"`

	AdjustmentsLog []string      `json:"adjustments_log"`
	Sanity         *SanityResult `json:"sanity_result,omitempty"`
}

// StageMetrics records per-stage wall times and counters for one claim.
type StageMetrics struct {
	ItemsProcessed  int           `json:"items_processed"`
	NonPayableCount int           `json:"non_payable_count"`
	RulesMatched    int           `json:"rules_matched"`
	RulesApplied    int           `json:"rules_applied"`
	NonPayableTime  time.Duration `json:"non_payable_time"`
	RuleMatchTime   time.Duration `json:"rule_match_time"`
	RuleApplyTime   time.Duration `json:"rule_apply_time"`
	SanityTime      time.Duration `json:"sanity_time"`
	TotalTime       time.Duration `json:"total_time"`
}
