package reconcile

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
)

func TestExtractAndFuse_AllProvidersHealthy(t *testing.T) {
	ctx := context.Background()
	doc := oracle.Document{Name: "bill.pdf"}
	e := NewEngine(nil)

	g := &mockExtractionOracle{name: "gemini"}
	o := &mockExtractionOracle{name: "openai"}
	gRec := sampleRecord("")
	oRec := sampleRecord("")
	g.On("Extract", mock.Anything, doc).Return(&gRec, nil)
	o.On("Extract", mock.Anything, doc).Return(&oRec, nil)

	fused, err := e.ExtractAndFuse(ctx, doc, []oracle.ExtractionOracle{g, o})
	require.NoError(t, err)
	assert.Equal(t, "gemini+openai", fused.Provider)
	assert.Equal(t, 1.0, fused.BillNo.Confidence)
	g.AssertExpectations(t)
	o.AssertExpectations(t)
}

func TestExtractAndFuse_SingleSurvivorReturnsRaw(t *testing.T) {
	ctx := context.Background()
	doc := oracle.Document{Name: "bill.pdf"}
	e := NewEngine(nil)

	g := &mockExtractionOracle{name: "gemini"}
	o := &mockExtractionOracle{name: "openai"}
	oRec := sampleRecord("")
	g.On("Extract", mock.Anything, doc).Return(nil, eris.New("quota exhausted"))
	o.On("Extract", mock.Anything, doc).Return(&oRec, nil)

	fused, err := e.ExtractAndFuse(ctx, doc, []oracle.ExtractionOracle{g, o})
	require.NoError(t, err)
	assert.Equal(t, "openai", fused.Provider)
	// Raw record: no fusion, original confidences survive.
	assert.Equal(t, 0.95, fused.BillNo.Confidence)
}

func TestExtractAndFuse_AllProvidersDown(t *testing.T) {
	ctx := context.Background()
	doc := oracle.Document{Name: "bill.pdf"}
	e := NewEngine(nil)

	g := &mockExtractionOracle{name: "gemini"}
	o := &mockExtractionOracle{name: "openai"}
	g.On("Extract", mock.Anything, doc).Return(nil, eris.New("quota exhausted"))
	o.On("Extract", mock.Anything, doc).Return(nil, eris.New("timeout"))

	_, err := e.ExtractAndFuse(ctx, doc, []oracle.ExtractionOracle{g, o})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestExtractAndFuse_NoProvidersConfigured(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.ExtractAndFuse(context.Background(), oracle.Document{Name: "bill.pdf"}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestExtractAndFuse_ProviderTagOverridesRecord(t *testing.T) {
	ctx := context.Background()
	doc := oracle.Document{Name: "bill.pdf"}
	e := NewEngine(nil)

	g := &mockExtractionOracle{name: "gemini"}
	rec := sampleRecord("something-else")
	g.On("Extract", mock.Anything, doc).Return(&rec, nil)

	fused, err := e.ExtractAndFuse(ctx, doc, []oracle.ExtractionOracle{g})
	require.NoError(t, err)
	assert.Equal(t, "gemini", fused.Provider)
	assert.Equal(t, model.NewConfident("X123", 0.95), fused.BillNo)
}
