package adjudicate

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mediclaim/claims-cli/internal/model"
)

// inr renders amounts with thousands grouping, matching the log format the
// downstream claims UI parses.
var inr = message.NewPrinter(language.English)

func rupees(v float64) string {
	return inr.Sprintf("₹%.2f", v)
}

func nonPayableLogEntry(descriptions []string, total float64) string {
	return inr.Sprintf("Items disallowed as per IRDAI non-payable list (%s): -₹%.2f",
		strings.Join(descriptions, ", "), total)
}

func subLimitLogEntry(total float64) string {
	return inr.Sprintf("Amount deducted due to insurance policy sub-limits: -₹%.2f", total)
}

func coPayLogEntry(pct, coPay float64) string {
	return inr.Sprintf("Applied %v%% co-payment: -₹%.2f", pct, coPay)
}

func sumInsuredCapLogEntry(sumInsured float64) string {
	return inr.Sprintf("Final amount capped at Sum Insured of ₹%.2f.", sumInsured)
}

// dedupedDescriptions returns the distinct item descriptions in first-seen
// order.
func dedupedDescriptions(items []model.AdjudicatedLineItem) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if _, ok := seen[it.Description]; ok {
			continue
		}
		seen[it.Description] = struct{}{}
		out = append(out, it.Description)
	}
	return out
}
