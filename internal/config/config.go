// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, pipeline limits, paywall
// quotas, collaborator credentials, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "tallyup")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GuardConfig tunes the dedup layer and the per-identity message limiter.
type GuardConfig struct {
	// SIDRetention is how long a delivery-id key blocks re-processing. It must
	// exceed the transport's retry window.
	SIDRetention time.Duration
	// HashRetention is the short window during which an identical body from
	// the same identity is treated as a retry rather than a new message.
	HashRetention time.Duration
	// CacheTTL bounds the in-process mirror of dedup keys.
	CacheTTL time.Duration
	// Window / Ceiling bound genuinely-distinct messages per identity.
	Window  time.Duration
	Ceiling int
}

// PaywallConfig tunes usage metering for free-plan users.
type PaywallConfig struct {
	FreeDailyLimit int           // billable actions per day on the free plan
	WarnThreshold  int           // remaining-quota level that triggers a nudge
	TrialDays      int           // length of the self-serve trial
	GraceLeeway    time.Duration // billing-status grace past period end
}

// NLPConfig configures the external intent-resolution fallback.
type NLPConfig struct {
	APIKey  string        // OPENAI_API_KEY; empty disables the fallback
	Model   string        // OPENAI_MODEL
	Timeout time.Duration // per-call deadline, separate from request timeout
}

// TransportConfig configures the outbound message sender.
type TransportConfig struct {
	BaseURL string // messaging API base URL
	Token   string // bearer token
	Timeout time.Duration
}

// BillingConfig configures the billing-processor collaborator.
type BillingConfig struct {
	BaseURL       string        // checkout API base URL
	APIKey        string        // secret API key for checkout creation
	WebhookSecret string        // HMAC secret for inbound event signatures
	SigTolerance  time.Duration // max signed-timestamp skew accepted
	SuccessURL    string        // hosted-checkout redirect target
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

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Edge rate limiting (per client IP, webhook endpoints)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Pipeline
	Guard   GuardConfig
	Paywall PaywallConfig

	// Collaborators
	NLP       NLPConfig
	Transport TransportConfig
	Billing   BillingConfig

	// AdminGrants lists identities given a standing pro grant (CSV).
	AdminGrants []string

	// Web protection
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

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Edge rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		Guard: GuardConfig{
			SIDRetention:  getdur("DEDUP_SID_RETENTION", 48*time.Hour),
			HashRetention: getdur("DEDUP_HASH_RETENTION", 30*time.Second),
			CacheTTL:      getdur("DEDUP_CACHE_TTL", 60*time.Second),
			Window:        getdur("IDENTITY_RATE_WINDOW", time.Minute),
			Ceiling:       getint("IDENTITY_RATE_CEILING", 8),
		},

		Paywall: PaywallConfig{
			FreeDailyLimit: getint("FREE_DAILY_LIMIT", 15),
			WarnThreshold:  getint("QUOTA_WARN_THRESHOLD", 3),
			TrialDays:      getint("TRIAL_DAYS", 14),
			GraceLeeway:    getdur("BILLING_GRACE_LEEWAY", 72*time.Hour),
		},

		NLP: NLPConfig{
			APIKey:  getenv("OPENAI_API_KEY", ""),
			Model:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getdur("NLP_TIMEOUT", 6*time.Second),
		},

		Transport: TransportConfig{
			BaseURL: getenv("TRANSPORT_BASE_URL", ""),
			Token:   getenv("TRANSPORT_TOKEN", ""),
			Timeout: getdur("TRANSPORT_TIMEOUT", 10*time.Second),
		},

		Billing: BillingConfig{
			BaseURL:       getenv("BILLING_BASE_URL", ""),
			APIKey:        getenv("BILLING_API_KEY", ""),
			WebhookSecret: getenv("BILLING_WEBHOOK_SECRET", ""),
			SigTolerance:  getdur("BILLING_SIG_TOLERANCE", 5*time.Minute),
			SuccessURL:    getenv("BILLING_SUCCESS_URL", ""),
		},

		AdminGrants: splitCSV(getenv("ADMIN_GRANTS", "")),

		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tallyup"),
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
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Guard.SIDRetention <= 0 || cfg.Guard.HashRetention <= 0 || cfg.Guard.CacheTTL <= 0 {
		return cfg, errors.New("dedup retention windows must be > 0")
	}
	if cfg.Guard.Window <= 0 || cfg.Guard.Ceiling < 1 {
		return cfg, errors.New("identity rate window must be > 0 and ceiling >= 1")
	}
	if cfg.Paywall.FreeDailyLimit < 1 {
		return cfg, errors.New("FREE_DAILY_LIMIT must be >= 1")
	}
	if cfg.Paywall.WarnThreshold < 0 || cfg.Paywall.WarnThreshold >= cfg.Paywall.FreeDailyLimit {
		return cfg, errors.New("QUOTA_WARN_THRESHOLD must be in [0, FREE_DAILY_LIMIT)")
	}
	if cfg.Paywall.TrialDays < 0 {
		return cfg, errors.New("TRIAL_DAYS must be >= 0")
	}
	if cfg.NLP.Timeout <= 0 {
		return cfg, errors.New("NLP_TIMEOUT must be > 0")
	}
	if cfg.Billing.SigTolerance <= 0 {
		return cfg, errors.New("BILLING_SIG_TOLERANCE must be > 0")
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
