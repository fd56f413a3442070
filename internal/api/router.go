package api

import (
	"context"

	"github.com/excuse-lab/excuse-api/internal/api/handlers"
	"github.com/excuse-lab/excuse-api/internal/api/middleware"
	"github.com/excuse-lab/excuse-api/internal/config"
	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/excuse-lab/excuse-api/internal/metrics"
	"github.com/excuse-lab/excuse-api/internal/observability"
	"github.com/gin-gonic/gin"
)

// generateBurst is how many generations a client may fire back to back before the per-minute
// rate applies
const generateBurst = 3

// Dependencies are the services the routes are built on. Excuses, Logs and PingDB are nil when
// no database is configured; the excuse routes then answer 503.
type Dependencies struct {
	Generator handlers.ExcuseGenerator
	Excuses   handlers.ExcuseStore
	Logs      handlers.GenerationLogStore
	PingDB    handlers.Pinger
	Recorder  *metrics.Recorder
	Tracer    *observability.LangfuseClient
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Dependencies, version string) *gin.Engine {
	router := gin.New()

	// Client IPs key the rate limiter, so forwarded headers only count from configured proxies
	var trusted []string
	if len(cfg.TrustedProxies) > 0 {
		trusted = cfg.TrustedProxies
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		logger.Warn("Invalid TRUSTED_PROXIES, ignoring forwarded headers", logger.Fields{"error": err.Error()})
		_ = router.SetTrustedProxies(nil)
	}

	// Recovery middleware (must be first)
	router.Use(middleware.RecoverWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.RequestTracking(deps.Recorder))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/", handlers.Root)

	healthHandler := handlers.NewHealthHandler(deps.PingDB, deps.Generator.ProviderName())
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(version, deps.Logs)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	generationHandler := handlers.NewGenerationHandler(deps.Generator, deps.Excuses, deps.Logs, deps.Recorder, deps.Tracer)
	router.POST("/generate_excuse",
		middleware.RateLimit(ctx, cfg.GenerateRatePerMinute, generateBurst),
		middleware.OptionalAuth(cfg),
		generationHandler.Generate,
	)

	api := router.Group("/api")
	if deps.Excuses == nil {
		api.Use(handlers.StorageUnavailable)
	}
	{
		excuseHandler := handlers.NewExcuseHandler(deps.Excuses)
		api.GET("/excuses", middleware.OptionalAuth(cfg), excuseHandler.List)
		api.GET("/excuses/:id", middleware.OptionalAuth(cfg), excuseHandler.Get)
		api.POST("/excuses", middleware.RequireAuth(cfg), excuseHandler.Create)
		api.DELETE("/excuses/:id", middleware.RequireAuth(cfg), excuseHandler.Delete)
		api.GET("/categories", excuseHandler.Categories)
	}

	return router
}
