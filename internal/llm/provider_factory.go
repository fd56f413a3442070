package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderFactory creates providers from explicit provider choice
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(openaiAPIKey, geminiAPIKey string) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
	}
}

// GetProvider returns the provider for the given name; empty defaults to gemini.
// model may be empty to use the provider default.
func (f *ProviderFactory) GetProvider(ctx context.Context, providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "", providerNameGemini:
		provider, err := NewGeminiProvider(ctx, f.geminiAPIKey, model)
		if err != nil {
			return nil, err
		}
		return provider, nil

	case providerNameOpenAI:
		provider, err := NewOpenAIProvider(f.openaiAPIKey, model)
		if err != nil {
			return nil, err
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: gemini, openai)", providerName)
	}
}
