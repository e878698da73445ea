// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, external
// provider credentials (Groq, Stripe), and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-leads-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GroqConfig holds credentials and tuning for the classification model.
// Groq exposes the OpenAI chat-completions protocol, so BaseURL can point at
// any compatible endpoint (tests point it at a local server).
type GroqConfig struct {
	APIKey  string        // GROQ_API_KEY (required)
	Model   string        // GROQ_MODEL
	BaseURL string        // GROQ_BASE_URL
	Timeout time.Duration // CLASSIFY_TIMEOUT per model call
}

// StripeConfig holds the payment-provider credentials and price identifiers.
type StripeConfig struct {
	SecretKey     string // STRIPE_SECRET_KEY (required)
	WebhookSecret string // STRIPE_WEBHOOK_SECRET (required)
	PriceIDDay    string // STRIPE_PRICE_ID_DAY (required)
	PriceIDWeek   string // STRIPE_PRICE_ID_WEEK (required)
	PriceIDMonth  string // STRIPE_PRICE_ID_MONTH (required)
	AppBaseURL    string // APP_BASE_URL, checkout redirect target
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath        string // SQLite path
	IngestSecret  string // INGEST_WEBHOOK_SECRET; bearer check disabled when empty
	PreviewLimit  int    // leads returned by the public preview endpoint
	MaxLeadsLimit int    // hard cap for ?limit= on the lead feed

	// External providers
	Groq   GroqConfig
	Stripe StripeConfig

	// ClassifyConcurrency caps classifier calls in flight per ingest batch.
	ClassifyConcurrency int

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
// Provider credentials are validated here, once, so a misconfigured
// deployment fails at startup instead of on the first webhook.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:        getenv("DB_PATH", "app.db"),
		IngestSecret:  getenv("INGEST_WEBHOOK_SECRET", ""),
		PreviewLimit:  getint("PREVIEW_LIMIT", 10),
		MaxLeadsLimit: getint("MAX_LEADS_LIMIT", 100),

		// External providers
		Groq: GroqConfig{
			APIKey:  getenv("GROQ_API_KEY", ""),
			Model:   getenv("GROQ_MODEL", "llama-3.1-70b-versatile"),
			BaseURL: getenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Timeout: getdur("CLASSIFY_TIMEOUT", 10*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     getenv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getenv("STRIPE_WEBHOOK_SECRET", ""),
			PriceIDDay:    getenv("STRIPE_PRICE_ID_DAY", ""),
			PriceIDWeek:   getenv("STRIPE_PRICE_ID_WEEK", ""),
			PriceIDMonth:  getenv("STRIPE_PRICE_ID_MONTH", ""),
			AppBaseURL:    strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:3000"), "/"),
		},

		ClassifyConcurrency: getint("CLASSIFY_CONCURRENCY", 4),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-leads-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.PreviewLimit < 1 {
		return cfg, errors.New("PREVIEW_LIMIT must be >= 1")
	}
	if cfg.MaxLeadsLimit < 1 {
		return cfg, errors.New("MAX_LEADS_LIMIT must be >= 1")
	}
	if strings.TrimSpace(cfg.Groq.APIKey) == "" {
		return cfg, errors.New("GROQ_API_KEY is required")
	}
	if cfg.Groq.Timeout <= 0 {
		return cfg, errors.New("CLASSIFY_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.Stripe.SecretKey) == "" {
		return cfg, errors.New("STRIPE_SECRET_KEY is required")
	}
	if strings.TrimSpace(cfg.Stripe.WebhookSecret) == "" {
		return cfg, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.Stripe.PriceIDDay == "" || cfg.Stripe.PriceIDWeek == "" || cfg.Stripe.PriceIDMonth == "" {
		return cfg, errors.New("STRIPE_PRICE_ID_DAY, STRIPE_PRICE_ID_WEEK and STRIPE_PRICE_ID_MONTH are required")
	}
	if cfg.ClassifyConcurrency < 1 {
		return cfg, errors.New("CLASSIFY_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
