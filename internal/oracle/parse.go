package oracle

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mediclaim/claims-cli/internal/model"
)

// Wire types for provider payloads. Every provider is prompted into the same
// schema, so one decoder serves all of them. Decoding is the trust boundary:
// anything that survives it is a typed domain record.

type wireStr struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type wireNum struct {
	Value      *float64 `json:"value"`
	Confidence float64  `json:"confidence"`
}

type wireItem struct {
	Description wireStr `json:"description"`
	Quantity    wireNum `json:"quantity"`
	UnitPrice   wireNum `json:"unit_price"`
	TotalAmount wireNum `json:"total_amount"`
}

type wireExtraction struct {
	HospitalName     wireStr    `json:"hospital_name"`
	PatientName      wireStr    `json:"patient_name"`
	BillNo           wireStr    `json:"bill_no"`
	BillDate         wireStr    `json:"bill_date"`
	AdmissionDate    wireStr    `json:"admission_date"`
	DischargeDate    wireStr    `json:"discharge_date"`
	NetPayableAmount wireNum    `json:"net_payable_amount"`
	LineItems        []wireItem `json:"line_items"`
}

// stripFences removes a markdown code fence wrapper if the model emitted one
// despite being asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func confidentStr(name, field string, w wireStr) (model.Confident[string], error) {
	if err := checkConfidence(name, field, w.Confidence); err != nil {
		return model.Confident[string]{}, err
	}
	if w.Value == nil || strings.TrimSpace(*w.Value) == "" {
		return model.Absent[string](w.Confidence), nil
	}
	return model.NewConfident(strings.TrimSpace(*w.Value), w.Confidence), nil
}

func confidentNum(name, field string, w wireNum) (model.Confident[float64], error) {
	if err := checkConfidence(name, field, w.Confidence); err != nil {
		return model.Confident[float64]{}, err
	}
	if w.Value == nil {
		return model.Absent[float64](w.Confidence), nil
	}
	return model.NewConfident(*w.Value, w.Confidence), nil
}

func confidentDate(name, field string, w wireStr) (model.Confident[model.Date], error) {
	if err := checkConfidence(name, field, w.Confidence); err != nil {
		return model.Confident[model.Date]{}, err
	}
	if w.Value == nil || strings.TrimSpace(*w.Value) == "" {
		return model.Absent[model.Date](w.Confidence), nil
	}
	d, err := model.ParseDate(strings.TrimSpace(*w.Value))
	if err != nil {
		return model.Confident[model.Date]{}, invalidf(name, field, "not a YYYY-MM-DD date: %q", *w.Value)
	}
	return model.NewConfident(d, w.Confidence), nil
}

func checkConfidence(name, field string, c float64) error {
	if c < 0 || c > 1 {
		return invalidf(name, field, "confidence %v outside [0,1]", c)
	}
	return nil
}

// decodeExtraction parses a provider's extraction payload into a typed
// record. Bills sometimes carry no explicit bill date; the admission date,
// then the discharge date, stands in for it.
func decodeExtraction(name, payload string) (*model.ExtractionRecord, error) {
	var wire wireExtraction
	if err := json.Unmarshal([]byte(stripFences(payload)), &wire); err != nil {
		return nil, invalidf(name, "", "malformed JSON: %v", err)
	}

	rec := &model.ExtractionRecord{Provider: name}
	var err error

	if rec.HospitalName, err = confidentStr(name, "hospital_name", wire.HospitalName); err != nil {
		return nil, err
	}
	if rec.PatientName, err = confidentStr(name, "patient_name", wire.PatientName); err != nil {
		return nil, err
	}
	if rec.BillNo, err = confidentStr(name, "bill_no", wire.BillNo); err != nil {
		return nil, err
	}
	if rec.BillDate, err = confidentDate(name, "bill_date", wire.BillDate); err != nil {
		return nil, err
	}
	if rec.AdmissionDate, err = confidentDate(name, "admission_date", wire.AdmissionDate); err != nil {
		return nil, err
	}
	if rec.DischargeDate, err = confidentDate(name, "discharge_date", wire.DischargeDate); err != nil {
		return nil, err
	}
	if rec.NetPayableAmount, err = confidentNum(name, "net_payable_amount", wire.NetPayableAmount); err != nil {
		return nil, err
	}

	if rec.BillDate.IsAbsent() {
		switch {
		case !rec.AdmissionDate.IsAbsent():
			rec.BillDate = rec.AdmissionDate
		case !rec.DischargeDate.IsAbsent():
			rec.BillDate = rec.DischargeDate
		}
	}

	rec.LineItems = make([]model.ConfidentLineItem, 0, len(wire.LineItems))
	for i, wi := range wire.LineItems {
		var item model.ConfidentLineItem
		if item.Description, err = confidentStr(name, itemField(i, "description"), wi.Description); err != nil {
			return nil, err
		}
		if item.Quantity, err = confidentNum(name, itemField(i, "quantity"), wi.Quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = confidentNum(name, itemField(i, "unit_price"), wi.UnitPrice); err != nil {
			return nil, err
		}
		if item.TotalAmount, err = confidentNum(name, itemField(i, "total_amount"), wi.TotalAmount); err != nil {
			return nil, err
		}
		rec.LineItems = append(rec.LineItems, item)
	}

	return rec, nil
}

func itemField(i int, field string) string {
	return "line_items[" + strconv.Itoa(i) + "]." + field
}

type wireRuleMatch struct {
	ApplicableRuleName *string `json:"applicable_rule_name"`
}

// decodeRuleMatch parses a rule-match payload. The returned name is either
// empty (no rule applies) or a verified member of ruleNames.
func decodeRuleMatch(name, payload string, ruleNames []string) (string, error) {
	var wire wireRuleMatch
	if err := json.Unmarshal([]byte(stripFences(payload)), &wire); err != nil {
		return "", invalidf(name, "", "malformed JSON: %v", err)
	}
	if wire.ApplicableRuleName == nil {
		return "", nil
	}
	matched := strings.TrimSpace(*wire.ApplicableRuleName)
	if matched == "" || strings.EqualFold(matched, "null") || strings.EqualFold(matched, "none") {
		return "", nil
	}
	if !slices.Contains(ruleNames, matched) {
		return "", invalidf(name, "applicable_rule_name", "%q is not an offered rule", matched)
	}
	return matched, nil
}

type wireRuleApply struct {
	AllowedAmount    *float64 `json:"allowed_amount"`
	DisallowedAmount *float64 `json:"disallowed_amount"`
	Reason           string   `json:"reason"`
}

// decodeRuleApply parses a rule-application payload onto the item it was
// computed for. The split must be non-negative and sum back to the item
// total.
func decodeRuleApply(name, payload string, item model.AdjudicatedLineItem) (model.AdjudicatedLineItem, error) {
	var wire wireRuleApply
	if err := json.Unmarshal([]byte(stripFences(payload)), &wire); err != nil {
		return item, invalidf(name, "", "malformed JSON: %v", err)
	}
	if wire.AllowedAmount == nil {
		return item, invalidf(name, "allowed_amount", "missing")
	}
	allowed := *wire.AllowedAmount
	disallowed := item.TotalAmount - allowed
	if wire.DisallowedAmount != nil {
		disallowed = *wire.DisallowedAmount
	}
	if allowed < 0 || disallowed < 0 {
		return item, invalidf(name, "allowed_amount", "negative split: allowed %v disallowed %v", allowed, disallowed)
	}

	item.AllowedAmount = allowed
	item.DisallowedAmount = disallowed
	if !item.SplitConsistent() {
		return item, invalidf(name, "allowed_amount",
			"split %v + %v does not sum to item total %v", allowed, disallowed, item.TotalAmount)
	}
	if item.DisallowedAmount > 0 {
		item.Reason = model.ReasonSubLimit
		item.ReasonDetail = strings.TrimSpace(wire.Reason)
	}
	return item, nil
}

type wireSimilarity struct {
	Similarity *float64 `json:"similarity"`
}

// decodeSimilarity parses a semantic-similarity payload into a [0,1] score.
func decodeSimilarity(name, payload string) (float64, error) {
	var wire wireSimilarity
	if err := json.Unmarshal([]byte(stripFences(payload)), &wire); err != nil {
		return 0, invalidf(name, "", "malformed JSON: %v", err)
	}
	if wire.Similarity == nil {
		return 0, invalidf(name, "similarity", "missing")
	}
	if *wire.Similarity < 0 || *wire.Similarity > 1 {
		return 0, invalidf(name, "similarity", "score %v outside [0,1]", *wire.Similarity)
	}
	return *wire.Similarity, nil
}

type wireSanity struct {
	IsReasonable *bool    `json:"is_reasonable"`
	Reasoning    string   `json:"reasoning"`
	Flags        []string `json:"flags"`
}

// decodeSanity parses a sanity-review payload. Flags outside the fixed
// taxonomy are dropped, not failed: the verdict is advisory.
func decodeSanity(name, payload string) (*model.SanityResult, error) {
	var wire wireSanity
	if err := json.Unmarshal([]byte(stripFences(payload)), &wire); err != nil {
		return nil, invalidf(name, "", "malformed JSON: %v", err)
	}
	if wire.IsReasonable == nil {
		return nil, invalidf(name, "is_reasonable", "missing")
	}

	result := &model.SanityResult{
		IsReasonable: *wire.IsReasonable,
		Reasoning:    strings.TrimSpace(wire.Reasoning),
	}
	for _, f := range wire.Flags {
		if !model.KnownSanityFlag(f) {
			zap.L().Warn("dropping unknown sanity flag",
				zap.String("oracle", name),
				zap.String("flag", f))
			continue
		}
		result.Flags = append(result.Flags, model.SanityFlag(f))
	}
	return result, nil
}
