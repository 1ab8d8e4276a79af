package oracle

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/mock"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/pkg/anthropic"
	"github.com/mediclaim/claims-cli/pkg/gemini"
)

// mockGeminiClient implements gemini.Client.
type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) GenerateContent(ctx context.Context, model string, req gemini.Request) (*gemini.Response, error) {
	args := m.Called(ctx, model, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.Response), args.Error(1)
}

var _ gemini.Client = (*mockGeminiClient)(nil)

// mockOpenAIAPI implements the openAIAPI slice of go-openai.
type mockOpenAIAPI struct {
	mock.Mock
}

func (m *mockOpenAIAPI) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(goopenai.ChatCompletionResponse), args.Error(1)
}

func (m *mockOpenAIAPI) CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(goopenai.EmbeddingResponse), args.Error(1)
}

var _ openAIAPI = (*mockOpenAIAPI)(nil)

// mockAnthropicClient implements anthropic.Client.
type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

var _ anthropic.Client = (*mockAnthropicClient)(nil)

// mockAdjudicationOracle implements AdjudicationOracle for failover tests.
type mockAdjudicationOracle struct {
	mock.Mock
	name string
}

func (m *mockAdjudicationOracle) Name() string { return m.name }

func (m *mockAdjudicationOracle) MatchRule(ctx context.Context, description string, ruleNames []string) (string, error) {
	args := m.Called(ctx, description, ruleNames)
	return args.String(0), args.Error(1)
}

func (m *mockAdjudicationOracle) ApplyRule(ctx context.Context, item model.AdjudicatedLineItem, rule model.RuleSpec, sumInsured float64) (model.AdjudicatedLineItem, error) {
	args := m.Called(ctx, item, rule, sumInsured)
	return args.Get(0).(model.AdjudicatedLineItem), args.Error(1)
}

func (m *mockAdjudicationOracle) Review(ctx context.Context, claim model.AdjudicatedClaim) (*model.SanityResult, error) {
	args := m.Called(ctx, claim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SanityResult), args.Error(1)
}

var _ AdjudicationOracle = (*mockAdjudicationOracle)(nil)
