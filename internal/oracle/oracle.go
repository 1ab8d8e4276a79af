// Package oracle defines the narrow contracts through which the claims core
// reaches external capabilities, plus the provider adapters that implement
// them. Every adapter parses the provider's dynamically-typed payload at its
// own boundary, so the core only ever sees typed domain records.
package oracle

import (
	"context"

	"github.com/mediclaim/claims-cli/internal/model"
)

// Document is a medical bill ready for extraction: one pre-rasterized JPEG
// image per relevant page. Rasterization and page-relevance classification
// happen upstream of this package.
type Document struct {
	Name  string
	Pages [][]byte
}

// ExtractionOracle converts bill images into a structured, per-field
// confidence-scored record. Calls may fail; the core assumes no retry
// guarantee.
type ExtractionOracle interface {
	Name() string
	Extract(ctx context.Context, doc Document) (*model.ExtractionRecord, error)
}

// Classification is the canonical catalog entry a raw description resolved to.
type Classification struct {
	CanonicalID string
	Name        string
	Category    string
}

// NormalizationOracle classifies a free-text item description into a
// canonical catalog entry. A nil Classification with nil error means no
// confident match exists.
type NormalizationOracle interface {
	Classify(ctx context.Context, description string) (*Classification, error)
}

// RuleMatchOracle maps an item description to the name of an applicable
// policy sub-limit. The returned name is always a member of ruleNames; an
// empty string means no rule applies.
type RuleMatchOracle interface {
	MatchRule(ctx context.Context, description string, ruleNames []string) (string, error)
}

// RuleApplyOracle applies one sub-limit to one line item and returns the
// item's allowed/disallowed split.
type RuleApplyOracle interface {
	ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error)
}

// SanityOracle reviews a fully-computed claim and returns an advisory
// reasonableness verdict.
type SanityOracle interface {
	Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error)
}

// SimilarityOracle reports semantic similarity of two descriptions in [0,1].
// It is an optional capability: callers degrade to lexical matching when no
// implementation is available.
type SimilarityOracle interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}
