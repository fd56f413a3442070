package observability

import (
	"context"
	"testing"

	"github.com/excuse-lab/excuse-api/internal/config"
	"github.com/excuse-lab/excuse-api/internal/llm"
	"github.com/henomis/langfuse-go/model"
	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage llm.Usage
		want  float64
	}{
		{"gemini flash", "gemini-1.5-flash", llm.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 0.375},
		{"versioned model uses prefix", "gemini-1.5-flash-002", llm.Usage{InputTokens: 1_000_000}, 0.075},
		{"longest prefix wins", "gpt-4o-mini-2024-07-18", llm.Usage{OutputTokens: 1_000_000}, 0.60},
		{"unknown model", "claude-x", llm.Usage{InputTokens: 500, OutputTokens: 500}, 0},
		{"no usage", "gpt-4o", llm.Usage{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateCost(tt.model, tt.usage), 1e-9)
		})
	}
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.000375", FormatCost(0.000375))
}

func TestGenerationRecordAddsCostMetadata(t *testing.T) {
	gen := &Generation{generation: &model.Generation{}, enabled: true}
	gen.Metadata(map[string]interface{}{"attempts": 2})
	gen.Record("gemini-1.5-flash", map[string]string{"user": "u"}, "遅れます", llm.Usage{InputTokens: 1_000, OutputTokens: 1_000})

	assert.Equal(t, "gemini-1.5-flash", gen.generation.Model)
	assert.Equal(t, "遅れます", gen.generation.Output)
	assert.InDelta(t, 0.000375, gen.generation.Usage.TotalCost, 1e-12)
	assert.Equal(t, map[string]interface{}{
		"attempts":       2,
		"estimated_cost": "$0.000375",
	}, gen.generation.Metadata)
}

func TestDisabledClientIsNoop(t *testing.T) {
	client := NewLangfuseClient(context.Background(), &config.Config{LangfuseEnabled: false})
	assert.False(t, client.IsEnabled())

	trace := client.StartTrace(context.Background(), "excuse", nil)
	gen := trace.Generation("gemini", nil)
	gen.Record("gemini-1.5-flash", "prompt", "answer", llm.Usage{InputTokens: 1})
	gen.Metadata(map[string]interface{}{"attempts": 1})
	gen.SetLevel("ERROR")
	gen.Finish()
	trace.Finish()

	var nilClient *LangfuseClient
	assert.False(t, nilClient.IsEnabled())
}
