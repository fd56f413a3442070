package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/getsentry/sentry-go"
)

// SentryMetrics records request and generation spans on the current Sentry transaction
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a Sentry metrics recorder. Call it after sentry.Init; without a
// bound client every call is a no-op.
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{enabled: sentry.CurrentHub().Client() != nil}
}

// RecordAPIRequest records one HTTP request
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetData("duration_ms", duration.Milliseconds())

	if statusCode < http.StatusBadRequest {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordGeneration tags the request transaction with the generation outcome
func (m *SentryMetrics) RecordGeneration(ctx context.Context, sample GenerationSample) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("excuse.outcome", sample.Outcome)
		transaction.SetTag("excuse.mode", sample.Mode)
		transaction.SetData("excuse.attempts", sample.Attempts)
	}

	span := sentry.StartSpan(ctx, "excuse.generation")
	defer span.Finish()

	span.SetTag("outcome", sample.Outcome)
	span.SetTag("provider", sample.Provider)
	span.SetData("attempts", sample.Attempts)
	span.SetData("duration_ms", sample.Duration.Milliseconds())
	span.SetData("input_tokens", sample.InputTokens)
	span.SetData("output_tokens", sample.OutputTokens)

	switch sample.Outcome {
	case models.OutcomeSuccess:
		span.Status = sentry.SpanStatusOK
	case models.OutcomeBusy:
		span.Status = sentry.SpanStatusUnavailable
	default:
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Generation: %s after %d attempt(s)", sample.Outcome, sample.Attempts)
}
