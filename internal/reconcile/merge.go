package reconcile

import (
	"context"
	"sort"

	"github.com/mediclaim/claims-cli/internal/model"
)

// lineItemMatchThreshold is the minimum description match score for two line
// items to be paired by the bipartite matching.
const lineItemMatchThreshold = 0.85

// mergeHeader fuses one header field from two providers. The left argument
// is the primary provider: ties in reported confidence resolve to it.
func mergeHeader[T any](a, b model.Confident[T], eq func(x, y T) bool) model.Confident[T] {
	switch {
	case a.IsAbsent() && b.IsAbsent():
		return model.Absent[T](reviewConfidence)
	case b.IsAbsent():
		return a.WithConfidence(reviewConfidence)
	case a.IsAbsent():
		return b.WithConfidence(reviewConfidence)
	}

	winner := a
	if b.Confidence > a.Confidence {
		winner = b
	}

	if eq(*a.Value, *b.Value) &&
		a.Confidence > ConfidenceAgreementThreshold &&
		b.Confidence > ConfidenceAgreementThreshold {
		return winner.WithConfidence(1.0)
	}
	return winner.WithConfidence(reviewConfidence)
}

// fusePair merges two extraction records of the same document. The first
// argument is the primary provider for tie-breaking.
func (e *Engine) fusePair(ctx context.Context, a, b model.ExtractionRecord) model.ExtractionRecord {
	stringEq := func(x, y string) bool {
		return e.matchDescriptions(ctx, x, y).Matched
	}
	dateEq := func(x, y model.Date) bool { return x.Equal(y) }

	fused := model.ExtractionRecord{
		Provider:         joinProviders(a.Provider, b.Provider),
		HospitalName:     mergeHeader(a.HospitalName, b.HospitalName, stringEq),
		PatientName:      mergeHeader(a.PatientName, b.PatientName, stringEq),
		BillNo:           mergeHeader(a.BillNo, b.BillNo, stringEq),
		BillDate:         mergeHeader(a.BillDate, b.BillDate, dateEq),
		AdmissionDate:    mergeHeader(a.AdmissionDate, b.AdmissionDate, dateEq),
		DischargeDate:    mergeHeader(a.DischargeDate, b.DischargeDate, dateEq),
		NetPayableAmount: mergeHeader(a.NetPayableAmount, b.NetPayableAmount, roundedEqual),
	}
	fused.LineItems = e.mergeLineItems(ctx, a.LineItems, b.LineItems)
	return fused
}

func joinProviders(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "+" + b
	}
}

// itemPair is one candidate pairing in the bipartite matching.
type itemPair struct {
	left, right int
	score       float64
}

// mergeLineItems pairs items across the two readings by description only
// (greedy, highest score first, each item used at most once) and fuses each
// pair. Items the matching did not claim pass through with confidence forced
// to reviewConfidence.
func (e *Engine) mergeLineItems(ctx context.Context, left, right []model.ConfidentLineItem) []model.ConfidentLineItem {
	var pairs []itemPair
	for i, li := range left {
		for j, ri := range right {
			m := e.matchDescriptions(ctx, li.Description.Get(), ri.Description.Get())
			if m.Matched && m.Score >= lineItemMatchThreshold {
				pairs = append(pairs, itemPair{left: i, right: j, score: m.Score})
			}
		}
	}

	// Highest score first; index order breaks ties so the result is
	// deterministic for identical inputs.
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].score != pairs[y].score {
			return pairs[x].score > pairs[y].score
		}
		if pairs[x].left != pairs[y].left {
			return pairs[x].left < pairs[y].left
		}
		return pairs[x].right < pairs[y].right
	})

	matchedRight := make(map[int]int, len(right)) // right index → left index
	matchedLeft := make(map[int]int, len(left))   // left index → right index
	for _, p := range pairs {
		if _, taken := matchedLeft[p.left]; taken {
			continue
		}
		if _, taken := matchedRight[p.right]; taken {
			continue
		}
		matchedLeft[p.left] = p.right
		matchedRight[p.right] = p.left
	}

	var out []model.ConfidentLineItem
	for i, li := range left {
		j, ok := matchedLeft[i]
		if !ok {
			out = append(out, forceReview(li))
			continue
		}
		ri := right[j]

		if !numbersAgree(li, ri) {
			// Ambiguous duplicate: same description, different numbers.
			// Emit both originals flagged for review.
			out = append(out, forceReview(li), forceReview(ri))
			continue
		}
		out = append(out, fuseItemPair(li, ri))
	}
	for j, ri := range right {
		if _, ok := matchedRight[j]; !ok {
			out = append(out, forceReview(ri))
		}
	}
	return out
}

// numbersAgree requires quantity, unit price, and total amount to all satisfy
// rounded equality.
func numbersAgree(a, b model.ConfidentLineItem) bool {
	return roundedEqual(a.Quantity.Get(), b.Quantity.Get()) &&
		roundedEqual(a.UnitPrice.Get(), b.UnitPrice.Get()) &&
		roundedEqual(a.TotalAmount.Get(), b.TotalAmount.Get())
}

// fuseItemPair merges a numerically-agreeing pair: each field's value comes
// from whichever side reported higher confidence for that field, and the
// whole item lands in the 1.0 confidence tier only when all four fields on
// both sides clear the agreement threshold.
func fuseItemPair(a, b model.ConfidentLineItem) model.ConfidentLineItem {
	tier := reviewConfidence
	if allAbove(ConfidenceAgreementThreshold,
		a.Description.Confidence, a.Quantity.Confidence, a.UnitPrice.Confidence, a.TotalAmount.Confidence,
		b.Description.Confidence, b.Quantity.Confidence, b.UnitPrice.Confidence, b.TotalAmount.Confidence,
	) {
		tier = 1.0
	}
	return model.ConfidentLineItem{
		Description: pickField(a.Description, b.Description, tier),
		Quantity:    pickField(a.Quantity, b.Quantity, tier),
		UnitPrice:   pickField(a.UnitPrice, b.UnitPrice, tier),
		TotalAmount: pickField(a.TotalAmount, b.TotalAmount, tier),
	}
}

// pickField takes the higher-confidence side's value (ties to the primary,
// left side) at the merged confidence tier.
func pickField[T any](a, b model.Confident[T], tier float64) model.Confident[T] {
	winner := a
	if b.Confidence > a.Confidence {
		winner = b
	}
	return winner.WithConfidence(tier)
}

func allAbove(threshold float64, values ...float64) bool {
	for _, v := range values {
		if v <= threshold {
			return false
		}
	}
	return true
}

// forceReview demotes every field of an unmerged or ambiguous item to the
// review confidence, keeping values untouched.
func forceReview(it model.ConfidentLineItem) model.ConfidentLineItem {
	return model.ConfidentLineItem{
		Description: it.Description.WithConfidence(reviewConfidence),
		Quantity:    it.Quantity.WithConfidence(reviewConfidence),
		UnitPrice:   it.UnitPrice.WithConfidence(reviewConfidence),
		TotalAmount: it.TotalAmount.WithConfidence(reviewConfidence),
	}
}
