package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	providerNameOpenAI = "openai"

	// DefaultOpenAIModel is the model used when none is configured
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIProvider implements the Provider interface using OpenAI chat completions
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. It fails fast when apiKey is empty.
func NewOpenAIProvider(apiKey, model string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	// Retries are owned by the gateway
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate performs one chat completion call
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	span := sentry.StartSpan(ctx, "openai.api_call")
	span.SetTag("model", model)
	defer span.Finish()

	startTime := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, buildChatParams(model, request))
	duration := time.Since(startTime)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		logger.Warn("OpenAI request failed", logger.Fields{
			"model":       model,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	response := &GenerationResponse{Model: model}
	if len(completion.Choices) > 0 {
		response.Text = strings.TrimSpace(completion.Choices[0].Message.Content)
	}
	response.Usage = Usage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:  int(completion.Usage.TotalTokens),
	}

	logger.Debug("OpenAI call completed", logger.Fields{
		"model":         model,
		"duration_ms":   duration.Milliseconds(),
		"output_length": len(response.Text),
	})
	return response, nil
}

func buildChatParams(model string, request *GenerationRequest) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(float64(request.Temperature)),
		TopP:        openai.Float(float64(request.TopP)),
	}
	if request.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxOutputTokens))
	}
	return params
}
