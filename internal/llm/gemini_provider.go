package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"

	// DefaultGeminiModel is the model used when none is configured
	DefaultGeminiModel = "gemini-1.5-flash"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider. It fails fast when apiKey is empty.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GOOGLE_API_KEY)", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Generate performs one GenerateContent call
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	model := p.modelFor(request)

	span := sentry.StartSpan(ctx, "gemini.api_call")
	span.SetTag("model", model)
	defer span.Finish()

	startTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(request.UserPrompt), p.buildConfig(request))
	duration := time.Since(startTime)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		logger.Warn("Gemini request failed", logger.Fields{
			"model":       model,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		// The upstream message is kept intact; the gateway classifies on it.
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	response := extractGeminiResponse(result)
	response.Model = model

	logger.Debug("Gemini call completed", logger.Fields{
		"model":         model,
		"duration_ms":   duration.Milliseconds(),
		"output_length": len(response.Text),
	})
	return response, nil
}

func (p *GeminiProvider) modelFor(request *GenerationRequest) string {
	if request.Model != "" {
		return request.Model
	}
	return p.model
}

// buildConfig maps sampling parameters onto the Gemini request config
func (p *GeminiProvider) buildConfig(request *GenerationRequest) *genai.GenerateContentConfig {
	temperature := request.Temperature
	topP := request.TopP

	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: request.MaxOutputTokens,
	}
	if request.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemPrompt, genai.RoleUser)
	}
	return config
}

// extractGeminiResponse pulls the text and usage out of a Gemini response.
// A response without candidates yields empty text.
func extractGeminiResponse(result *genai.GenerateContentResponse) *GenerationResponse {
	response := &GenerationResponse{}
	if result == nil {
		return response
	}

	response.Text = strings.TrimSpace(result.Text())

	if usage := result.UsageMetadata; usage != nil {
		response.Usage = Usage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}
	return response
}
