package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	environmentProduction = "production"

	defaultMaxAttempts    = 4
	defaultAttemptTimeout = 20 * time.Second
	defaultGenerateRate   = 20 // requests per minute per client
)

// Config holds the application configuration.
// Values are read once at startup and injected into the components that need them.
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM provider
	LLMProvider    string // "gemini" (default) or "openai"
	GeminiAPIKey   string // Google AI Studio key (GOOGLE_API_KEY or GEMINI_API_KEY)
	OpenAIAPIKey   string
	LLMModel       string // Empty means the provider default
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryOnEmpty   bool

	// Database (Supabase Postgres connection string)
	DatabaseURL string

	// Auth mode
	// - "none": anonymous access, excuses are shared
	// - "supabase": verify Supabase access tokens with SupabaseJWTSecret
	AuthMode          string
	SupabaseJWTSecret string

	// HTTP
	AllowedOrigins        []string
	GenerateRatePerMinute int
	// TrustedProxies are the peers whose X-Forwarded-For is honoured. Empty means none.
	TrustedProxies []string

	// Observability
	SentryDSN         string
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string
	LangfuseEnabled   bool
}

func Load() *Config {
	return &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		Port:                  getEnv("PORT", "8001"),
		LLMProvider:           strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:          getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", "")),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		LLMModel:              getEnv("LLM_MODEL", ""),
		MaxAttempts:           getEnvInt("LLM_MAX_ATTEMPTS", defaultMaxAttempts),
		AttemptTimeout:        getEnvDuration("LLM_ATTEMPT_TIMEOUT", defaultAttemptTimeout),
		RetryOnEmpty:          getEnvBool("LLM_RETRY_ON_EMPTY", true),
		DatabaseURL:           getEnv("DATABASE_URL", getEnv("SUPABASE_DB_URL", "")),
		AuthMode:              getEnv("AUTH_MODE", "none"),
		SupabaseJWTSecret:     getEnv("SUPABASE_JWT_SECRET", ""),
		AllowedOrigins:        getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8000", "http://127.0.0.1:8000"}),
		GenerateRatePerMinute: getEnvInt("GENERATE_RATE_PER_MINUTE", defaultGenerateRate),
		TrustedProxies:        getEnvList("TRUSTED_PROXIES", nil),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:     getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:     getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:          getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:       getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == environmentProduction
}

// IsSupabaseAuth returns true when access tokens from Supabase Auth must be verified
func (c *Config) IsSupabaseAuth() bool {
	return c.AuthMode == "supabase"
}
