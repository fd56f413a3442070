package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/excuse-lab/excuse-api/internal/api/middleware"
	"github.com/excuse-lab/excuse-api/internal/gateway"
	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/excuse-lab/excuse-api/internal/metrics"
	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/excuse-lab/excuse-api/internal/observability"
	"github.com/excuse-lab/excuse-api/internal/prompt"
	"github.com/gin-gonic/gin"
)

// providerLabels name the upstream in 500 responses
var providerLabels = map[string]string{
	"gemini": "Gemini",
	"openai": "OpenAI",
}

type GenerationHandler struct {
	generator ExcuseGenerator
	excuses   ExcuseStore
	logs      GenerationLogStore
	recorder  *metrics.Recorder
	tracer    *observability.LangfuseClient
}

// NewGenerationHandler wires the generation endpoint. logs, recorder and tracer may be nil.
func NewGenerationHandler(
	generator ExcuseGenerator,
	excuses ExcuseStore,
	logs GenerationLogStore,
	recorder *metrics.Recorder,
	tracer *observability.LangfuseClient,
) *GenerationHandler {
	if recorder == nil {
		recorder = metrics.NewRecorder(nil)
	}
	return &GenerationHandler{
		generator: generator,
		excuses:   excuses,
		logs:      logs,
		recorder:  recorder,
		tracer:    tracer,
	}
}

// ExcuseResponse is the success body of POST /generate_excuse
type ExcuseResponse struct {
	Excuse string `json:"excuse"`
}

// Generate handles POST /generate_excuse
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req prompt.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID, authenticated := middleware.GetCurrentUserID(c)
	provider := h.generator.ProviderName()
	mode := prompt.ModeFor(req.Cause)

	trace := h.tracer.StartTrace(ctx, "generate_excuse", map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"user_id":    userID,
		"mode":       string(mode),
	})
	defer trace.Finish()
	generation := trace.Generation(provider, map[string]interface{}{"audience": req.Audience})

	start := time.Now()
	result, err := h.generator.Generate(ctx, req)
	duration := time.Since(start)

	sample := metrics.GenerationSample{
		Mode:     string(mode),
		Provider: provider,
		Duration: duration,
	}
	fields := logger.WithContext(c)
	fields["mode"] = string(mode)

	if err != nil {
		kind := gateway.KindOf(err)
		sample.Attempts = gateway.AttemptsOf(err)
		sample.Outcome = outcomeFor(kind)
		h.finish(c, sample, userID)

		generation.Metadata(map[string]interface{}{"attempts": sample.Attempts, "outcome": sample.Outcome})
		generation.SetLevel("ERROR")
		generation.Finish()

		fields["outcome"] = sample.Outcome
		logger.LogGenerationRequest(provider, sample.Attempts, duration, fields)

		if kind == gateway.KindBusy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": msgBusy})
			return
		}
		logger.Error("Excuse generation failed", err, fields)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": upstreamErrorMessage(provider, err)})
		return
	}

	sample.Outcome = models.OutcomeSuccess
	sample.Attempts = result.Attempts
	sample.Model = result.Model
	sample.InputTokens = result.Usage.InputTokens
	sample.OutputTokens = result.Usage.OutputTokens
	h.finish(c, sample, userID)

	generation.Record(result.Model, tracedInput(result.Prompt, req), result.Text, result.Usage)
	generation.Metadata(map[string]interface{}{"attempts": result.Attempts})
	generation.Finish()

	fields["outcome"] = sample.Outcome
	logger.LogGenerationRequest(provider, result.Attempts, duration, fields)

	if authenticated {
		h.saveHistory(c, userID, req, result.Text)
	}

	c.JSON(http.StatusOK, ExcuseResponse{Excuse: result.Text})
}

// finish records the outcome in the generation log and metrics backends
func (h *GenerationHandler) finish(c *gin.Context, sample metrics.GenerationSample, userID string) {
	h.recorder.RecordGeneration(c.Request.Context(), sample)
	if h.logs == nil {
		return
	}

	entry := &models.GenerationLog{
		RequestID:    c.GetString("request_id"),
		UserID:       userID,
		Mode:         sample.Mode,
		Provider:     sample.Provider,
		Model:        sample.Model,
		Attempts:     sample.Attempts,
		Outcome:      sample.Outcome,
		DurationMS:   sample.Duration.Milliseconds(),
		InputTokens:  sample.InputTokens,
		OutputTokens: sample.OutputTokens,
	}
	if err := h.logs.Record(entry); err != nil {
		logger.Warn("Failed to record generation log", logger.Fields{
			"request_id": entry.RequestID,
			"error":      err.Error(),
		})
	}
}

// saveHistory keeps a generated excuse for a signed-in user; failures only get logged
func (h *GenerationHandler) saveHistory(c *gin.Context, userID string, req prompt.Request, text string) {
	if h.excuses == nil {
		return
	}

	category := req.Cause
	if category == "" {
		category = generatedCategory
	}
	excuse := &models.Excuse{
		Title:       historyTitle(req),
		Description: text,
		Category:    category,
		UserID:      userID,
	}
	if err := h.excuses.Create(excuse); err != nil {
		logger.Warn("Failed to save generated excuse", logger.Fields{
			"request_id": c.GetString("request_id"),
			"user_id":    userID,
			"error":      err.Error(),
		})
	}
}

// historyTitle summarises the request, e.g. "上司へ 10分 寝坊"
func historyTitle(req prompt.Request) string {
	parts := make([]string, 0, 3)
	if req.Audience != "" {
		parts = append(parts, req.Audience+"へ")
	}
	if req.Delay != "" {
		parts = append(parts, prompt.DelayLabel(req.Delay))
	}
	if req.Cause != "" {
		parts = append(parts, req.Cause)
	}
	if len(parts) == 0 {
		return "遅刻連絡"
	}

	title := strings.Join(parts, " ")
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	return title
}

// tracedInput is the instruction pair sent to the model, or the raw request if none was recorded
func tracedInput(p *prompt.Prompt, req prompt.Request) interface{} {
	if p == nil {
		return req
	}
	return map[string]string{
		"system": p.System,
		"user":   p.User,
	}
}

func outcomeFor(kind gateway.FailureKind) string {
	if kind == gateway.KindBusy {
		return models.OutcomeBusy
	}
	return models.OutcomeFailed
}

func upstreamErrorMessage(provider string, err error) string {
	label, ok := providerLabels[provider]
	if !ok {
		label = provider
	}
	return fmt.Sprintf("%s error: %s", label, err.Error())
}
