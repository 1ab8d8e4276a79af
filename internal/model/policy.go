package model

import "sort"

// RuleType identifies how a sub-limit caps a charge.
type RuleType string

const (
	RuleFixed              RuleType = "fixed"
	RulePercentSumInsured  RuleType = "percentage_of_sum_insured"
	RulePercentSurgeryCost RuleType = "percentage_of_surgery_cost"
	RulePercentSurgeonFee  RuleType = "percentage_of_surgeon_fee"
	RuleFixedPackage       RuleType = "fixed_package"
)

// Valid reports whether t is a recognized rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleFixed, RulePercentSumInsured, RulePercentSurgeryCost,
		RulePercentSurgeonFee, RuleFixedPackage:
		return true
	}
	return false
}

// RuleSpec is one policy sub-limit: a cap on a specific category of charge.
// Description and Examples feed the rule-matching and rule-application
// prompts; the numeric fields parameterize the cap itself.
type RuleSpec struct {
	Type             RuleType `json:"type" yaml:"type"`
	Value            float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Per              string   `json:"per,omitempty" yaml:"per,omitempty"`
	MaxCap           float64  `json:"max_cap,omitempty" yaml:"max_cap,omitempty"`
	MaxCapPerDay     float64  `json:"max_cap_per_day,omitempty" yaml:"max_cap_per_day,omitempty"`
	DaysCovered      int      `json:"days_covered,omitempty" yaml:"days_covered,omitempty"`
	MaxSessions      int      `json:"max_sessions,omitempty" yaml:"max_sessions,omitempty"`
	NormalDelivery   float64  `json:"normal_delivery,omitempty" yaml:"normal_delivery,omitempty"`
	CSectionDelivery float64  `json:"c_section_delivery,omitempty" yaml:"c_section_delivery,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Examples         []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Policy is one insurance policy rulebook entry. Read-only reference data:
// loaded once, never mutated by the pipeline.
type Policy struct {
	PolicyID            string              `json:"policy_id" yaml:"policy_id"`
	PolicyName          string              `json:"policy_name" yaml:"policy_name"`
	SumInsured          float64             `json:"sum_insured" yaml:"sum_insured"`
	CoPaymentPercentage float64             `json:"co_payment_percentage" yaml:"co_payment_percentage"`
	SubLimits           map[string]RuleSpec `json:"sub_limits" yaml:"sub_limits"`
}

// RuleNames returns the policy's sub-limit names in sorted order, for
// deterministic prompt construction and membership checks.
func (p Policy) RuleNames() []string {
	names := make([]string, 0, len(p.SubLimits))
	for name := range p.SubLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
