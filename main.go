package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/excuse-lab/excuse-api/internal/api"
	"github.com/excuse-lab/excuse-api/internal/config"
	"github.com/excuse-lab/excuse-api/internal/database"
	"github.com/excuse-lab/excuse-api/internal/gateway"
	"github.com/excuse-lab/excuse-api/internal/llm"
	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/excuse-lab/excuse-api/internal/metrics"
	"github.com/excuse-lab/excuse-api/internal/observability"
	"github.com/excuse-lab/excuse-api/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 30 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(!cfg.IsProduction())
	defer logger.Sync()

	if envErr != nil {
		logger.Info("No .env file found, using environment variables", nil)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "excuse-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", logger.Fields{"error": err.Error()})
		} else {
			logger.Info("Sentry initialized", logger.Fields{"environment": cfg.Environment, "release": releaseVersion})
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey).
		GetProvider(ctx, cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Error("LLM API key is not configured (set GOOGLE_API_KEY or OPENAI_API_KEY)", err, nil)
		} else {
			logger.Error("Failed to create LLM provider", err, logger.Fields{"provider": cfg.LLMProvider})
		}
		sentry.Flush(sentryFlushTimeout)
		os.Exit(1)
	}

	generator, err := gateway.New(provider, gateway.Options{
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
		RetryOnEmpty:   cfg.RetryOnEmpty,
		Model:          cfg.LLMModel,
	})
	if err != nil {
		logger.Error("Failed to create generation gateway", err, nil)
		os.Exit(1)
	}

	deps := api.Dependencies{
		Generator: generator,
		Recorder:  metrics.NewRecorder(metrics.NewClient(ctx, cfg.Environment)),
		Tracer:    observability.NewLangfuseClient(ctx, cfg),
	}
	if db := openDatabase(cfg); db != nil {
		deps.Excuses = services.NewExcuseService(db)
		deps.Logs = services.NewGenerationLogService(db)
		deps.PingDB = func(ctx context.Context) error { return database.Ping(ctx, db) }
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(ctx, cfg, deps, releaseVersion),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", logger.Fields{
			"port":     cfg.Port,
			"provider": generator.ProviderName(),
			"auth":     cfg.AuthMode,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", err, nil)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err, nil)
	}
	logger.Info("Server stopped", nil)
}

// openDatabase connects and migrates; without DATABASE_URL the excuse store is disabled
func openDatabase(cfg *config.Config) *gorm.DB {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, excuse storage disabled", nil)
		return nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", err, nil)
		sentry.Flush(sentryFlushTimeout)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", err, nil)
		sentry.Flush(sentryFlushTimeout)
		os.Exit(1)
	}
	return db
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string, len(headers))
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
