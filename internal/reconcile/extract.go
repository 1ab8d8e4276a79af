package reconcile

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

// ErrOracleUnavailable is returned when no configured extraction provider
// could produce a record for the document.
var ErrOracleUnavailable = eris.New("reconcile: no extraction provider reachable")

// providerOutcome is the tagged per-provider result of one extraction call.
// Collecting outcomes explicitly (rather than letting the first error abort
// the group) is what lets the degradation ladder inspect partial failures.
type providerOutcome struct {
	provider string
	record   *model.ExtractionRecord
	err      error
}

// ExtractAndFuse calls every configured extraction provider concurrently,
// joins all of them, and applies the degradation ladder: two or more
// successful readings are fused to the canonical record; exactly one is
// returned raw with its original confidences; zero fails the request.
func (e *Engine) ExtractAndFuse(ctx context.Context, doc oracle.Document, providers []oracle.ExtractionOracle) (model.ExtractionRecord, error) {
	if len(providers) == 0 {
		return model.ExtractionRecord{}, ErrOracleUnavailable
	}

	outcomes := make([]providerOutcome, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := p.Extract(ctx, doc)
			outcomes[i] = providerOutcome{provider: p.Name(), record: rec, err: err}
		}()
	}
	wg.Wait()

	var records []model.ExtractionRecord
	var failures []error
	for _, out := range outcomes {
		if out.err != nil {
			zap.L().Warn("reconcile: extraction provider failed",
				zap.String("provider", out.provider),
				zap.String("document", doc.Name),
				zap.Error(out.err),
			)
			failures = append(failures, eris.Wrapf(out.err, "provider %s", out.provider))
			continue
		}
		rec := *out.record
		rec.Provider = out.provider
		records = append(records, rec)
	}

	switch len(records) {
	case 0:
		err := ErrOracleUnavailable
		for _, f := range failures {
			err = eris.Wrap(err, f.Error())
		}
		return model.ExtractionRecord{}, err
	case 1:
		zap.L().Info("reconcile: single provider reachable, returning unfused record",
			zap.String("provider", records[0].Provider),
			zap.String("document", doc.Name),
		)
		return records[0], nil
	default:
		zap.L().Info("reconcile: fusing provider records",
			zap.Int("providers", len(records)),
			zap.String("document", doc.Name),
		)
		return e.Fuse(ctx, records...)
	}
}
