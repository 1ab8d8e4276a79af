package reconcile

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

// Engine fuses 2–3 extraction records from independent oracle calls on the
// same document into one canonical record. It holds no per-claim state; a
// single Engine serves any number of concurrent claims.
type Engine struct {
	similarity oracle.SimilarityOracle // optional, nil degrades to lexical matching
}

// NewEngine creates a reconciliation engine. similarity may be nil, in which
// case description matching falls back to exact and fuzzy comparison only.
func NewEngine(similarity oracle.SimilarityOracle) *Engine {
	return &Engine{similarity: similarity}
}

// Fuse reduces the given records to one canonical record. Records fold
// pairwise in argument order, so the first record is the primary provider
// for every tie-break. One record passes through untouched with its original
// confidences.
func (e *Engine) Fuse(ctx context.Context, records ...model.ExtractionRecord) (model.ExtractionRecord, error) {
	switch len(records) {
	case 0:
		return model.ExtractionRecord{}, eris.New("reconcile: no records to fuse")
	case 1:
		return records[0], nil
	}
	fused := records[0]
	for _, next := range records[1:] {
		fused = e.fusePair(ctx, fused, next)
	}
	return fused, nil
}
