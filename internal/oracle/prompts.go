package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediclaim/claims-cli/internal/model"
)

// extractionPrompt is the shared master prompt for every extraction
// provider. All providers are driven into the same wire schema so one
// decoder serves them all.
const extractionPrompt = `Your task is to act as an expert data extraction agent for Indian medical bills.
Analyze the provided image(s) of a hospital bill and respond ONLY with a valid JSON object
that strictly follows the schema provided below.

For every field, you must provide the extracted "value" and a "confidence" score from 0.0 to 1.0.
Use this scale for the confidence score:
- 1.0: The text is perfectly clear and legible.
- 0.9: The text is slightly blurry but you are very confident.
- 0.7: The text is difficult to read or ambiguous. This is your best interpretation.
- 0.5: The text is extremely blurry or obscured. This is a best-effort guess.

If a field is not present on the bill, the "value" should be null.

CRITICAL INSTRUCTIONS FOR DIFFICULT TEXT:
1. It is mandatory to attempt extraction for every visible line item, even if parts of it are faded, blurry, or covered by a stamp.
2. DO NOT OMIT a line item or a value just because it is hard to read.
3. You MUST provide your best possible guess for the value and assign a low confidence score (e.g., 0.5-0.7) to indicate your uncertainty.
4. Use contextual clues. For example, if the line item totals and the final gross total are visible, use them to infer the values of obscured line items.

JSON Output Structure:
{
  "hospital_name": { "value": "String", "confidence": 0.0 },
  "patient_name": { "value": "String", "confidence": 0.0 },
  "bill_no": { "value": "String", "confidence": 0.0 },
  "bill_date": { "value": "YYYY-MM-DD", "confidence": 0.0 },
  "admission_date": { "value": "YYYY-MM-DD", "confidence": 0.0 },
  "discharge_date": { "value": "YYYY-MM-DD", "confidence": 0.0 },
  "net_payable_amount": { "value": 0.0, "confidence": 0.0 },
  "line_items": [
    {
      "description": { "value": "String", "confidence": 0.0 },
      "quantity": { "value": 0.0, "confidence": 0.0 },
      "unit_price": { "value": 0.0, "confidence": 0.0 },
      "total_amount": { "value": 0.0, "confidence": 0.0 }
    }
  ]
}`

const ruleMatchSystem = `You are an expert insurance adjudicator. Your task is to match a medical bill item to a specific policy rule.
Respond ONLY with a JSON object of the form {"applicable_rule_name": "Rule Name"} using one of the offered rule names,
or {"applicable_rule_name": null} if no rule applies.`

func ruleMatchPrompt(description string, ruleNames []string) string {
	return fmt.Sprintf("Medical Item Description: '%s'\n\nAvailable Policy Rules: [%s]",
		description, strings.Join(ruleNames, ", "))
}

const ruleApplySystem = `You are a meticulous and precise insurance claims adjudication engine.
Your task is to apply a single policy rule to a single line item and calculate the final allowed amount.

You must follow these steps to reason:
1. First, identify the claimed amount, the quantity, and the specific policy rule from the context.
2. Second, analyze the rule. Is it a 'per day', 'per instance', 'per unit', or a total 'claim level' limit?
3. Third, calculate the maximum possible allowed amount based on the rule and the quantity. For 'per day' or 'per instance' rules, this will involve multiplying the limit by the quantity.
4. Fourth, compare this calculated maximum with the originally claimed amount for the line item.
5. The final allowed amount for this item is the lesser of these two values (the calculated maximum and the claimed amount).

Respond ONLY with a JSON object:
{"allowed_amount": 0.0, "disallowed_amount": 0.0, "reason": "one sentence explaining any deduction"}
The two amounts must sum exactly to the item's total amount.`

func ruleApplyPrompt(item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) string {
	itemJSON, _ := json.Marshal(item)
	ruleJSON, _ := json.Marshal(rule)
	return fmt.Sprintf("- Current Line Item: %s\n- Policy Rule to Apply: %s\n- Total sum insured: %v",
		itemJSON, ruleJSON, sumInsured)
}

func sanityPrompt(claim model.AdjudicatedClaim) string {
	claimJSON, _ := json.MarshalIndent(claim, "", "  ")
	return fmt.Sprintf(`You are a professional claims processor with over 20 years of experience.
Your task is to perform a final sanity check on the adjudicated claim object provided below.

Adjudicated Claim Details:
%s

Predefined Flag Categories:
["Calculation Error", "Logic Inconsistency", "High Cost Anomaly", "Missing Information", "Policy Misinterpretation"]

Instructions:
1. First, determine if the final adjudication is reasonable and consistent. Set "is_reasonable" to true or false.
2. Second, provide a brief, one-sentence explanation for your decision in the "reasoning" field.
3. Third, if "is_reasonable" is false, you MUST select one or more relevant flags from the Predefined Flag Categories list and add them to the "flags" array. If everything is reasonable, the "flags" array should be empty.

Respond ONLY with a valid JSON object:
{"is_reasonable": true, "reasoning": "String", "flags": []}`, claimJSON)
}

const similaritySystem = `You are a medical billing terminology expert. Given two medical item descriptions,
respond ONLY with a JSON object {"similarity": 0.0} where similarity is a score from 0.0 (unrelated)
to 1.0 (the same item or service), judging whether the two descriptions refer to the same billable item.`

func similarityPrompt(a, b string) string {
	return fmt.Sprintf("Description A: '%s'\nDescription B: '%s'", a, b)
}
