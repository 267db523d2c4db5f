// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the credit ledger, letter generation, payments and
// observability settings.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "fantasy-letters")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines how callers are identified.
type AuthConfig struct {
	JWTSecret      string // AUTH_JWT_SECRET (HS256)
	AllowDevHeader bool   // AUTH_ALLOW_DEV_HEADER: trust X-User-ID when no token is sent
	AdminToken     string // ADMIN_TOKEN guards /admin routes
}

// LettersConfig defines letter generation limits.
type LettersConfig struct {
	FreeDailyReplies  int           // FREE_DAILY_REPLIES
	MaxLetterRunes    int           // MAX_LETTER_RUNES
	MaxNotesRunes     int           // MAX_NOTES_RUNES
	GenerationTimeout time.Duration // GENERATION_TIMEOUT
	ModerationEnabled bool          // MODERATION_ENABLED
	RateRPS           float64       // LETTER_RATE_RPS: per-user generation limit
	RateBurst         int           // LETTER_RATE_BURST
}

// OpenAIConfig defines the text generator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// StripeConfig defines the payment processor.
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	APIURL         string
	SuccessURL     string
	CancelURL      string
	PaymentTimeout time.Duration
}

// SecretsConfig selects where API secrets are read from.
type SecretsConfig struct {
	Source      string // env|ssm
	ParamPrefix string // SSM path prefix, e.g. "/fantasy-letters"
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must cover GENERATION_TIMEOUT
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	Auth    AuthConfig
	Letters LettersConfig
	OpenAI  OpenAIConfig
	Stripe  StripeConfig
	Secrets SecretsConfig

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
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "letters.db"),

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

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Auth: AuthConfig{
			JWTSecret:      getenv("AUTH_JWT_SECRET", ""),
			AllowDevHeader: getbool("AUTH_ALLOW_DEV_HEADER", false),
			AdminToken:     getenv("ADMIN_TOKEN", ""),
		},
		Letters: LettersConfig{
			FreeDailyReplies:  getint("FREE_DAILY_REPLIES", 2),
			MaxLetterRunes:    getint("MAX_LETTER_RUNES", 4000),
			MaxNotesRunes:     getint("MAX_NOTES_RUNES", 1000),
			GenerationTimeout: getdur("GENERATION_TIMEOUT", 60*time.Second),
			ModerationEnabled: getbool("MODERATION_ENABLED", false),
			RateRPS:           getfloat("LETTER_RATE_RPS", 0.2),
			RateBurst:         getint("LETTER_RATE_BURST", 3),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getenv("OPENAI_API_KEY", ""),
			BaseURL:     getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:   getint("OPENAI_MAX_TOKENS", 400),
			Temperature: getfloat("OPENAI_TEMPERATURE", 0.7),
		},
		Stripe: StripeConfig{
			SecretKey:      getenv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getenv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:         getenv("STRIPE_API_URL", ""),
			SuccessURL:     getenv("CHECKOUT_SUCCESS_URL", "http://localhost:5173/credits/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:      getenv("CHECKOUT_CANCEL_URL", "http://localhost:5173/credits"),
			PaymentTimeout: getdur("PAYMENT_TIMEOUT", 15*time.Second),
		},
		Secrets: SecretsConfig{
			Source:      strings.ToLower(getenv("SECRETS_SOURCE", "env")),
			ParamPrefix: strings.TrimRight(getenv("PARAM_PREFIX", "/fantasy-letters"), "/"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "fantasy-letters"),
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

	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once, joined with errors.Join.
func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(c.Port) == "", "PORT must not be empty")
	check(c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) == "", "DB_PATH must not be empty")

	check(c.RateRPS < 0, "RATE_RPS must be >= 0")
	check(c.RateBurst < 1, "RATE_BURST must be >= 1")
	check(c.Letters.RateRPS < 0 || c.Letters.RateBurst < 1, "LETTER_RATE_RPS must be >= 0 and LETTER_RATE_BURST >= 1")
	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	check(c.Letters.FreeDailyReplies < 0, "FREE_DAILY_REPLIES must be >= 0")
	check(c.Letters.MaxLetterRunes <= 0 || c.Letters.MaxNotesRunes <= 0, "MAX_LETTER_RUNES and MAX_NOTES_RUNES must be > 0")
	check(c.Letters.GenerationTimeout <= 0 || c.Stripe.PaymentTimeout <= 0,
		"GENERATION_TIMEOUT and PAYMENT_TIMEOUT must be positive durations")
	check(c.OpenAI.MaxTokens <= 0, "OPENAI_MAX_TOKENS must be > 0")
	check(c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2, "OPENAI_TEMPERATURE must be in [0,2]")

	switch c.Secrets.Source {
	case "env":
	case "ssm":
		check(c.Secrets.ParamPrefix == "", "PARAM_PREFIX must not be empty when SECRETS_SOURCE=ssm")
	default:
		errs = append(errs, errors.New("SECRETS_SOURCE must be one of: env, ssm"))
	}
	check(c.Auth.JWTSecret == "" && !c.Auth.AllowDevHeader, "AUTH_JWT_SECRET is required unless AUTH_ALLOW_DEV_HEADER is set")

	return errors.Join(errs...)
}

// ---- env helpers: unset, empty or unparsable values fall back to def ----

func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return lookup(k, def, func(v string) (string, error) { return v, nil })
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return lookup(k, def, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errors.New("not a boolean")
	})
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
