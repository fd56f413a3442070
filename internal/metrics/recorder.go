// Package metrics fans request and generation measurements out to Sentry and CloudWatch.
package metrics

import (
	"context"
	"time"
)

// GenerationSample describes one finished /generate_excuse call
type GenerationSample struct {
	Outcome      string // models.Outcome*
	Mode         string
	Provider     string
	Model        string
	Attempts     int
	Duration     time.Duration
	InputTokens  int
	OutputTokens int
}

// Recorder sends every measurement to both backends
type Recorder struct {
	sentry *SentryMetrics
	cloud  *Client
}

// NewRecorder combines Sentry spans with the given CloudWatch client (nil disables CloudWatch)
func NewRecorder(cloud *Client) *Recorder {
	if cloud == nil {
		cloud = &Client{}
	}
	return &Recorder{sentry: NewSentryMetrics(), cloud: cloud}
}

// RecordAPIRequest records one HTTP request
func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	r.cloud.RecordAPIRequest(endpoint, statusCode, duration)
}

// RecordGeneration records one generation outcome
func (r *Recorder) RecordGeneration(ctx context.Context, sample GenerationSample) {
	r.sentry.RecordGeneration(ctx, sample)
	r.cloud.RecordGeneration(sample)
}
