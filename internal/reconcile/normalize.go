// Package reconcile fuses independent confidence-scored readings of the same
// medical bill into one canonical extraction record.
package reconcile

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// ConfidenceAgreementThreshold is the per-field confidence both providers
// must exceed, on top of value agreement, for a merged field to be elevated
// to confidence 1.0. Anything less is demoted to reviewConfidence and
// flagged for human review. The gate is deliberately strict (0.9, the
// "slightly blurry but very confident" band of the extraction prompt scale)
// rather than the looser 0.7 band.
const ConfidenceAgreementThreshold = 0.9

// reviewConfidence marks a merged field as needing human review.
const reviewConfidence = 0.5

// normalizeText lowercases, strips punctuation, and collapses whitespace.
// Applied before any string comparison.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenSet returns the set of normalized tokens in s.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalizeText(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// isSubset reports whether every token in a occurs in b.
func isSubset(a, b map[string]struct{}) bool {
	if len(a) == 0 {
		return false
	}
	for tok := range a {
		if _, ok := b[tok]; !ok {
			return false
		}
	}
	return true
}

// sortedTokenKey joins the normalized tokens of s in sorted order. Comparing
// these keys makes the fuzzy ratio insensitive to token order and symmetric
// in its arguments.
func sortedTokenKey(s string) string {
	toks := strings.Fields(normalizeText(s))
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

// fuzzyRatio is a Levenshtein similarity over the sorted-token forms of a
// and b, in [0,1].
func fuzzyRatio(a, b string) float64 {
	ka, kb := sortedTokenKey(a), sortedTokenKey(b)
	if ka == "" && kb == "" {
		return 1.0
	}
	longest := max(len(ka), len(kb))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ka, kb))/float64(longest)
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming form.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// RoundHalfAwayFromZero rounds v to the nearest integer, with halves rounded
// away from zero: 2.5 → 3, -2.5 → -3.
func RoundHalfAwayFromZero(v float64) int64 {
	return int64(math.Trunc(v + math.Copysign(0.5, v)))
}

// roundedEqual reports whether two amounts are equal for merge purposes:
// they round to the same integer using half-away-from-zero rounding.
func roundedEqual(a, b float64) bool {
	return RoundHalfAwayFromZero(a) == RoundHalfAwayFromZero(b)
}
