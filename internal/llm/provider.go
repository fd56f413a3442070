package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider is constructed without a credential.
// It is a configuration error and never retried.
var ErrMissingAPIKey = errors.New("llm API key not configured")

// Provider defines the interface for text-generation providers.
// One Generate call is one network round trip; retries live in the gateway.
type Provider interface {
	// Generate sends the instruction pair with the given sampling parameters and returns the
	// trimmed model text. An empty model answer is returned as empty text, not as an error.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string
}

// GenerationRequest contains all parameters needed for one call
type GenerationRequest struct {
	Model           string // Empty means the provider default
	SystemPrompt    string
	UserPrompt      string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// Usage is the token accounting reported by the provider
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// GenerationResponse contains the result from the provider
type GenerationResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}
