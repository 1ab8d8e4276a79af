package reconcile

import (
	"context"

	"go.uber.org/zap"
)

const (
	// subsetScore is awarded when one normalized token set contains the other.
	subsetScore = 0.9
	// fuzzyMatchThreshold is the minimum token-multiset ratio for a lexical match.
	fuzzyMatchThreshold = 0.90
	// semanticMatchThreshold is the minimum embedding cosine similarity for a
	// semantic match.
	semanticMatchThreshold = 0.80
)

// MatchResult is the outcome of comparing two item descriptions.
type MatchResult struct {
	Matched bool
	Score   float64
}

// matchDescriptions compares two descriptions through the cascade: exact
// normalized equality, token-set subset, fuzzy token ratio, then semantic
// similarity. It is symmetric in its arguments. Semantic matching degrades
// gracefully to score 0 when no similarity oracle is configured or the call
// fails.
func (e *Engine) matchDescriptions(ctx context.Context, a, b string) MatchResult {
	na, nb := normalizeText(a), normalizeText(b)
	if na == nb {
		return MatchResult{Matched: true, Score: 1.0}
	}

	sa, sb := tokenSet(a), tokenSet(b)
	if isSubset(sa, sb) || isSubset(sb, sa) {
		return MatchResult{Matched: true, Score: subsetScore}
	}

	ratio := fuzzyRatio(a, b)
	if ratio >= fuzzyMatchThreshold {
		return MatchResult{Matched: true, Score: ratio}
	}

	sim := e.semanticSimilarity(ctx, na, nb)
	if sim >= semanticMatchThreshold {
		return MatchResult{Matched: true, Score: sim}
	}

	return MatchResult{Matched: false, Score: max(ratio, sim)}
}

// semanticSimilarity queries the optional similarity oracle. Arguments are
// ordered lexicographically before the call so the result cannot depend on
// argument order.
func (e *Engine) semanticSimilarity(ctx context.Context, a, b string) float64 {
	if e.similarity == nil {
		return 0
	}
	if b < a {
		a, b = b, a
	}
	sim, err := e.similarity.Similarity(ctx, a, b)
	if err != nil {
		zap.L().Warn("reconcile: similarity oracle unavailable, degrading to lexical match",
			zap.Error(err),
		)
		return 0
	}
	if sim < 0 || sim > 1 {
		zap.L().Warn("reconcile: similarity out of range, ignoring",
			zap.Float64("similarity", sim),
		)
		return 0
	}
	return sim
}
