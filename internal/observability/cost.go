package observability

import (
	"strconv"
	"strings"

	"github.com/excuse-lab/excuse-api/internal/llm"
)

const (
	tokensPerMillion    = 1_000_000.0
	costFormatPrecision = 6
)

// ModelPricing is the list price in USD per million tokens
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// PricingTable is keyed by model name prefix; the longest matching prefix wins
var PricingTable = map[string]ModelPricing{
	"gemini-1.5-flash": {InputPerMillion: 0.075, OutputPerMillion: 0.30},
	"gemini-1.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 5.00},
	"gemini-2.0-flash": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gemini-2.5-flash": {InputPerMillion: 0.30, OutputPerMillion: 2.50},
	"gpt-4o":           {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":      {InputPerMillion: 0.15, OutputPerMillion: 0.60},
}

// pricingFor finds the entry with the longest prefix of modelName
func pricingFor(modelName string) (ModelPricing, bool) {
	var (
		best    ModelPricing
		bestLen int
	)
	for prefix, pricing := range PricingTable {
		if strings.HasPrefix(modelName, prefix) && len(prefix) > bestLen {
			best, bestLen = pricing, len(prefix)
		}
	}
	return best, bestLen > 0
}

// EstimateCost returns the USD cost of a call, or 0 for models without a price
func EstimateCost(modelName string, usage llm.Usage) float64 {
	pricing, ok := pricingFor(modelName)
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/tokensPerMillion*pricing.InputPerMillion +
		float64(usage.OutputTokens)/tokensPerMillion*pricing.OutputPerMillion
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
