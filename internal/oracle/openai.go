package oracle

import (
	"context"
	"encoding/base64"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/resilience"
)

// openAIAPI is the slice of the go-openai client the adapter uses.
// *goopenai.Client satisfies it.
type openAIAPI interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// OpenAI adapts the OpenAI API to the oracle contracts. Besides serving as
// the fallback adjudication provider it is the embedding backend for the
// normalization catalog.
type OpenAI struct {
	client         openAIAPI
	model          string
	embeddingModel string
	limiter        *rate.Limiter
	retry          resilience.RetryConfig
}

// OpenAIOption configures the adapter.
type OpenAIOption func(*OpenAI)

// WithOpenAIModels overrides the chat and embedding model IDs.
func WithOpenAIModels(model, embeddingModel string) OpenAIOption {
	return func(o *OpenAI) {
		o.model = model
		o.embeddingModel = embeddingModel
	}
}

// WithOpenAIRPS caps outbound request rate.
func WithOpenAIRPS(rps int) OpenAIOption {
	return func(o *OpenAI) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithOpenAIRetry overrides the retry policy.
func WithOpenAIRetry(cfg resilience.RetryConfig) OpenAIOption {
	return func(o *OpenAI) {
		o.retry = cfg
	}
}

// NewOpenAI creates the OpenAI oracle adapter.
func NewOpenAI(client openAIAPI, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		client:         client,
		model:          "gpt-4o",
		embeddingModel: "text-embedding-3-small",
		limiter:        rate.NewLimiter(rate.Limit(5), 1),
		retry:          resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var (
	_ ExtractionOracle = (*OpenAI)(nil)
	_ RuleMatchOracle  = (*OpenAI)(nil)
	_ RuleApplyOracle  = (*OpenAI)(nil)
	_ SanityOracle     = (*OpenAI)(nil)
)

func (o *OpenAI) Name() string { return "openai" }

// retryableOpenAI retries throttling and server-side API errors plus
// network-level transients. Schema violations are never retried.
func retryableOpenAI(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	return resilience.IsTransient(err)
}

func (o *OpenAI) chat(ctx context.Context, operation string, messages []goopenai.ChatCompletionMessage) (string, error) {
	cfg := o.retry
	cfg.ShouldRetry = retryableOpenAI
	cfg.OnRetry = resilience.RetryLogger("openai", operation)

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return goopenai.ChatCompletionResponse{}, err
		}
		return o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", invalidf(o.Name(), "", "response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Extract(ctx context.Context, doc Document) (*model.ExtractionRecord, error) {
	parts := make([]goopenai.ChatMessagePart, 0, len(doc.Pages)+1)
	parts = append(parts, goopenai.ChatMessagePart{
		Type: goopenai.ChatMessagePartTypeText,
		Text: extractionPrompt,
	})
	for _, page := range doc.Pages {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(page),
			},
		})
	}

	text, err := o.chat(ctx, "extract", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleUser, MultiContent: parts},
	})
	if err != nil {
		return nil, err
	}
	return decodeExtraction(o.Name(), text)
}

func (o *OpenAI) MatchRule(ctx context.Context, description string, ruleNames []string) (string, error) {
	text, err := o.chat(ctx, "match_rule", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: ruleMatchSystem},
		{Role: goopenai.ChatMessageRoleUser, Content: ruleMatchPrompt(description, ruleNames)},
	})
	if err != nil {
		return "", err
	}
	return decodeRuleMatch(o.Name(), text, ruleNames)
}

func (o *OpenAI) ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error) {
	text, err := o.chat(ctx, "apply_rule", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: ruleApplySystem},
		{Role: goopenai.ChatMessageRoleUser, Content: ruleApplyPrompt(item, rule, sumInsured)},
	})
	if err != nil {
		return item, err
	}
	return decodeRuleApply(o.Name(), text, item)
}

func (o *OpenAI) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	text, err := o.chat(ctx, "sanity_review", []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleUser, Content: sanityPrompt(claim)},
	})
	if err != nil {
		return nil, err
	}
	return decodeSanity(o.Name(), text)
}

// EmbedTexts embeds the given texts with the configured embedding model. It
// satisfies the catalog's Embedder contract.
func (o *OpenAI) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	cfg := o.retry
	cfg.ShouldRetry = retryableOpenAI
	cfg.OnRetry = resilience.RetryLogger("openai", "embed")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return goopenai.EmbeddingResponse{}, err
		}
		return o.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input: texts,
			Model: goopenai.EmbeddingModel(o.embeddingModel),
		})
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, invalidf(o.Name(), "", "embedding count %d does not match input count %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
