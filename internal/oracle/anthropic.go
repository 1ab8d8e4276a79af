package oracle

import (
	"context"
	"encoding/base64"
	"errors"

	"golang.org/x/time/rate"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/resilience"
	"github.com/mediclaim/claims-cli/pkg/anthropic"
)

const anthropicMaxTokens = 8192

// Anthropic adapts the Anthropic Messages API to the oracle contracts. It is
// an optional third extraction reading and an alternative sanity reviewer.
type Anthropic struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// AnthropicOption configures the adapter.
type AnthropicOption func(*Anthropic)

// WithAnthropicModel overrides the model ID.
func WithAnthropicModel(model string) AnthropicOption {
	return func(a *Anthropic) {
		a.model = model
	}
}

// WithAnthropicRPS caps outbound request rate.
func WithAnthropicRPS(rps int) AnthropicOption {
	return func(a *Anthropic) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithAnthropicRetry overrides the retry policy.
func WithAnthropicRetry(cfg resilience.RetryConfig) AnthropicOption {
	return func(a *Anthropic) {
		a.retry = cfg
	}
}

// NewAnthropic creates the Anthropic oracle adapter.
func NewAnthropic(client anthropic.Client, opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{
		client:  client,
		model:   "claude-sonnet-4-5-20250929",
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var (
	_ ExtractionOracle = (*Anthropic)(nil)
	_ SanityOracle     = (*Anthropic)(nil)
)

func (a *Anthropic) Name() string { return "anthropic" }

func retryableAnthropic(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	return resilience.IsTransient(err)
}

func (a *Anthropic) message(ctx context.Context, operation string, req anthropic.MessageRequest) (string, error) {
	cfg := a.retry
	cfg.ShouldRetry = retryableAnthropic
	cfg.OnRetry = resilience.RetryLogger("anthropic", operation)

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return a.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(a.model, operation)
	return resp.Text(), nil
}

func (a *Anthropic) Extract(ctx context.Context, doc Document) (*model.ExtractionRecord, error) {
	content := make([]anthropic.ContentPart, 0, len(doc.Pages)+1)
	content = append(content, anthropic.TextContent(extractionPrompt))
	for _, page := range doc.Pages {
		content = append(content, anthropic.ImageContent("image/jpeg", base64.StdEncoding.EncodeToString(page)))
	}

	text, err := a.message(ctx, "extract", anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   anthropicMaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: content}},
		Temperature: zeroTemp(),
	})
	if err != nil {
		return nil, err
	}
	return decodeExtraction(a.Name(), text)
}

func (a *Anthropic) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	text, err := a.message(ctx, "sanity_review", anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   anthropicMaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: []anthropic.ContentPart{anthropic.TextContent(sanityPrompt(claim))}}},
		Temperature: zeroTemp(),
	})
	if err != nil {
		return nil, err
	}
	return decodeSanity(a.Name(), text)
}
