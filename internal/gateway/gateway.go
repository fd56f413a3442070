// Package gateway turns an excuse request into model text, retrying transient upstream failures
// with exponential backoff and jitter.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/excuse-lab/excuse-api/internal/llm"
	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/excuse-lab/excuse-api/internal/prompt"
)

const (
	DefaultMaxAttempts    = 4
	DefaultAttemptTimeout = 20 * time.Second
)

// Options configures a Gateway. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	// RetryOnEmpty treats an empty model answer as transient. When false an empty answer
	// goes through Classify like any other error and fails immediately.
	RetryOnEmpty bool
	Model        string

	// Test hooks
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

// Result is a successful generation
type Result struct {
	Text     string
	Attempts int
	Mode     prompt.Mode
	Provider string
	Model    string
	Usage    llm.Usage
	// Prompt is what was sent to the provider
	Prompt *prompt.Prompt
}

// Gateway is safe for concurrent use; it holds no per-request state.
type Gateway struct {
	provider       llm.Provider
	builder        *prompt.Builder
	maxAttempts    int
	attemptTimeout time.Duration
	retryOnEmpty   bool
	model          string
	sleep          func(ctx context.Context, d time.Duration) error
	jitter         func() time.Duration
}

// New creates a gateway over a provider
func New(provider llm.Provider, opts Options) (*Gateway, error) {
	if provider == nil {
		return nil, errors.New("gateway: provider is required")
	}

	g := &Gateway{
		provider:       provider,
		builder:        prompt.NewPromptBuilder(),
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
		retryOnEmpty:   opts.RetryOnEmpty,
		model:          opts.Model,
		sleep:          opts.Sleep,
		jitter:         opts.Jitter,
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultMaxAttempts
	}
	if g.attemptTimeout <= 0 {
		g.attemptTimeout = DefaultAttemptTimeout
	}
	if g.sleep == nil {
		g.sleep = sleepContext
	}
	if g.jitter == nil {
		g.jitter = randomJitter
	}
	return g, nil
}

// ProviderName returns the name of the underlying provider
func (g *Gateway) ProviderName() string {
	return g.provider.Name()
}

// Generate composes the prompt for req and invokes the provider with retries.
func (g *Gateway) Generate(ctx context.Context, req prompt.Request) (*Result, error) {
	p, err := g.builder.Build(req)
	if err != nil {
		return nil, &GenerationError{Kind: KindFailed, Err: fmt.Errorf("compose prompt: %w", err)}
	}

	result, err := g.Invoke(ctx, p)
	if err != nil {
		return nil, err
	}
	result.Mode = p.Mode
	return result, nil
}

// Invoke runs the retry loop for an already composed prompt.
//
// Attempt i that fails transiently is followed by a wait of Backoff(i, jitter) unless it was the
// last one, in which case the call fails with KindBusy. A permanent failure ends the call at once.
// Cancelling ctx stops the loop at the next attempt or wait and returns ctx.Err().
func (g *Gateway) Invoke(ctx context.Context, p *prompt.Prompt) (*Result, error) {
	request := &llm.GenerationRequest{
		Model:           g.model,
		SystemPrompt:    p.System,
		UserPrompt:      p.User,
		Temperature:     p.Config.Temperature,
		TopP:            p.Config.TopP,
		MaxOutputTokens: p.Config.MaxOutputTokens,
	}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		resp, err := g.attempt(ctx, request)
		if err == nil {
			return &Result{
				Text:     resp.Text,
				Attempts: attempt + 1,
				Provider: g.provider.Name(),
				Model:    resp.Model,
				Usage:    resp.Usage,
				Prompt:   p,
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		class := g.classify(err)
		fields := logger.Fields{
			"provider": g.provider.Name(),
			"attempt":  attempt + 1,
			"class":    class.String(),
			"error":    err.Error(),
		}

		if class == Permanent {
			logger.Warn("Generation failed permanently", fields)
			return nil, &GenerationError{Kind: KindFailed, Attempts: attempt + 1, Err: err}
		}
		if attempt == g.maxAttempts-1 {
			break
		}

		delay := Backoff(attempt, g.jitter())
		fields["retry_in_ms"] = delay.Milliseconds()
		logger.Warn("Transient generation failure, retrying", fields)

		if err := g.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	logger.Warn("Generation retries exhausted", logger.Fields{
		"provider": g.provider.Name(),
		"attempts": g.maxAttempts,
		"error":    lastErr.Error(),
	})
	return nil, &GenerationError{Kind: KindBusy, Attempts: g.maxAttempts, Err: lastErr}
}

// attempt performs one provider call under the per-attempt timeout
func (g *Gateway) attempt(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
	defer cancel()

	resp, err := g.provider.Generate(attemptCtx, request)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %v", errAttemptTimeout, g.attemptTimeout, err)
		}
		return nil, err
	}
	if resp == nil || resp.Text == "" {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func (g *Gateway) classify(err error) Class {
	switch {
	case errors.Is(err, errAttemptTimeout):
		return Transient
	case errors.Is(err, ErrEmptyResponse) && g.retryOnEmpty:
		return Transient
	default:
		return Classify(err.Error())
	}
}
