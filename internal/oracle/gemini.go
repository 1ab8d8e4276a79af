package oracle

import (
	"context"
	"encoding/base64"
	"errors"

	"golang.org/x/time/rate"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/resilience"
	"github.com/mediclaim/claims-cli/pkg/gemini"
)

// Gemini adapts the Generative Language API to the oracle contracts. It is
// the primary provider for extraction, rule matching, rule application, and
// the sanity review; heavyweight reasoning goes to the pro model, everything
// else to the flash model.
type Gemini struct {
	client   gemini.Client
	model    string
	proModel string
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// GeminiOption configures the adapter.
type GeminiOption func(*Gemini)

// WithGeminiModels overrides the flash and pro model IDs.
func WithGeminiModels(model, proModel string) GeminiOption {
	return func(g *Gemini) {
		g.model = model
		g.proModel = proModel
	}
}

// WithGeminiRPS caps outbound request rate.
func WithGeminiRPS(rps int) GeminiOption {
	return func(g *Gemini) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithGeminiRetry overrides the retry policy.
func WithGeminiRetry(cfg resilience.RetryConfig) GeminiOption {
	return func(g *Gemini) {
		g.retry = cfg
	}
}

// NewGemini creates the Gemini oracle adapter.
func NewGemini(client gemini.Client, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		client:   client,
		model:    "gemini-2.5-flash",
		proModel: "gemini-2.5-pro",
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var (
	_ ExtractionOracle = (*Gemini)(nil)
	_ RuleMatchOracle  = (*Gemini)(nil)
	_ RuleApplyOracle  = (*Gemini)(nil)
	_ SanityOracle     = (*Gemini)(nil)
	_ SimilarityOracle = (*Gemini)(nil)
)

func (g *Gemini) Name() string { return "gemini" }

// retryableGemini retries API-level throttling and server errors plus
// network-level transients. Schema violations are never retried.
func retryableGemini(err error) bool {
	var se *gemini.StatusError
	if errors.As(err, &se) {
		return resilience.IsTransientHTTPStatus(se.Code)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	return resilience.IsTransient(err)
}

func (g *Gemini) generate(ctx context.Context, operation, mdl string, req gemini.Request) (string, error) {
	cfg := g.retry
	cfg.ShouldRetry = retryableGemini
	cfg.OnRetry = resilience.RetryLogger("gemini", operation)

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*gemini.Response, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return g.client.GenerateContent(ctx, mdl, req)
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (g *Gemini) Extract(ctx context.Context, doc Document) (*model.ExtractionRecord, error) {
	parts := make([]gemini.Part, 0, len(doc.Pages)+1)
	parts = append(parts, gemini.TextPart(extractionPrompt))
	for _, page := range doc.Pages {
		parts = append(parts, gemini.ImagePart("image/jpeg", base64.StdEncoding.EncodeToString(page)))
	}

	text, err := g.generate(ctx, "extract", g.proModel, gemini.Request{
		Parts:      parts,
		JSONOutput: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeExtraction(g.Name(), text)
}

func (g *Gemini) MatchRule(ctx context.Context, description string, ruleNames []string) (string, error) {
	text, err := g.generate(ctx, "match_rule", g.model, gemini.Request{
		Parts: []gemini.Part{
			gemini.TextPart(ruleMatchSystem),
			gemini.TextPart(ruleMatchPrompt(description, ruleNames)),
		},
		JSONOutput:  true,
		Temperature: zeroTemp(),
	})
	if err != nil {
		return "", err
	}
	return decodeRuleMatch(g.Name(), text, ruleNames)
}

func (g *Gemini) ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error) {
	text, err := g.generate(ctx, "apply_rule", g.proModel, gemini.Request{
		Parts: []gemini.Part{
			gemini.TextPart(ruleApplySystem),
			gemini.TextPart(ruleApplyPrompt(item, rule, sumInsured)),
		},
		JSONOutput:  true,
		Temperature: zeroTemp(),
	})
	if err != nil {
		return item, err
	}
	return decodeRuleApply(g.Name(), text, item)
}

func (g *Gemini) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	text, err := g.generate(ctx, "sanity_review", g.proModel, gemini.Request{
		Parts:       []gemini.Part{gemini.TextPart(sanityPrompt(claim))},
		JSONOutput:  true,
		Temperature: zeroTemp(),
	})
	if err != nil {
		return nil, err
	}
	return decodeSanity(g.Name(), text)
}

func (g *Gemini) Similarity(ctx context.Context, a, b string) (float64, error) {
	text, err := g.generate(ctx, "similarity", g.model, gemini.Request{
		Parts: []gemini.Part{
			gemini.TextPart(similaritySystem),
			gemini.TextPart(similarityPrompt(a, b)),
		},
		JSONOutput:  true,
		Temperature: zeroTemp(),
	})
	if err != nil {
		return 0, err
	}
	return decodeSimilarity(g.Name(), text)
}

func zeroTemp() *float64 {
	t := 0.0
	return &t
}
