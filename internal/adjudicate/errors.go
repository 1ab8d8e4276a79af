package adjudicate

import "fmt"

// Stage names the orchestration step an error surfaced from.
type Stage string

const (
	StageNonPayable Stage = "non_payable_filter"
	StageRuleMatch  Stage = "rule_matching"
	StageRuleApply  Stage = "rule_application"
	StageAggregate  Stage = "aggregation"
	StageSanity     Stage = "sanity_review"
)

// AdjudicationError is the single claim-level failure type. Any oracle error
// aborts the whole claim and surfaces as one of these, naming the failing
// stage and, when applicable, the item being processed.
type AdjudicationError struct {
	Stage Stage
	Item  string
	Err   error
}

func (e *AdjudicationError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("adjudicate: stage %s failed on item %q: %v", e.Stage, e.Item, e.Err)
	}
	return fmt.Sprintf("adjudicate: stage %s failed: %v", e.Stage, e.Err)
}

func (e *AdjudicationError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, item string, err error) *AdjudicationError {
	return &AdjudicationError{Stage: stage, Item: item, Err: err}
}
