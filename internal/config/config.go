package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	OTelExporter    string
	OTelEndpoint    string
	OTelServiceName string
	OTelSampleRatio float64

	MetricsNamespace string
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	AccessTokenTTL    time.Duration
	LoginRateLimit    string

	StoreName     string
	StoreWhatsApp string
	StoreAddress  string
	StoreHours    string
	StoreEmail    string
	Timezone      string

	SessionTTL      time.Duration
	CatalogCacheTTL time.Duration
	CartMaxQty      int
	CheckoutRPM     int
	IdempotencyTTL  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	QueueName        string
	QueueConcurrency int
	QueueMaxRetry    int
	QueueRetention   time.Duration
	MailFailureLimit int
	MailOpenTimeout  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		OTelExporter:    valueOrDefault(k.String("OTEL_EXPORTER"), "none"),
		OTelEndpoint:    k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: valueOrDefault(k.String("OTEL_SERVICE_NAME"), "tienda-api"),
		OTelSampleRatio: parseFloat(k.String("OTEL_SAMPLE_RATIO"), 1),

		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "tienda"),
		PprofEnabled:     parseBool(k.String("ENABLE_PPROF")),
		PprofUser:        strings.TrimSpace(k.String("PPROF_BASIC_AUTH_USER")),
		PprofPass:        strings.TrimSpace(k.String("PPROF_BASIC_AUTH_PASS")),

		JWTSecret:         k.String("JWT_SECRET"),
		AdminUsername:     valueOrDefault(k.String("ADMIN_USERNAME"), "admin"),
		AdminPasswordHash: strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),
		AccessTokenTTL:    parseDuration(k.String("ACCESS_TOKEN_TTL"), "30m"),
		LoginRateLimit:    valueOrDefault(k.String("LOGIN_RATE_LIMIT"), "5-M"),

		StoreName:     valueOrDefault(k.String("STORE_NAME"), "Tienda"),
		StoreWhatsApp: valueOrDefault(k.String("STORE_WHATSAPP"), "+53 54690878"),
		StoreAddress:  valueOrDefault(k.String("STORE_ADDRESS"), "Santiago de Cuba"),
		StoreHours:    k.String("STORE_HOURS"),
		StoreEmail:    strings.TrimSpace(k.String("STORE_EMAIL")),
		Timezone:      valueOrDefault(k.String("STORE_TIMEZONE"), "America/Havana"),

		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "720h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CartMaxQty:      parseInt(k.String("CART_MAX_QTY"), 99),
		CheckoutRPM:     parseInt(k.String("CHECKOUT_RATE_PER_MINUTE"), 10),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		MaxBodyBytes:    int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),

		QueueName:        valueOrDefault(k.String("QUEUE_NAME"), "notifications"),
		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		QueueMaxRetry:    parseInt(k.String("QUEUE_MAX_RETRY"), 8),
		QueueRetention:   parseDuration(k.String("QUEUE_RETENTION"), "24h"),
		MailFailureLimit: parseInt(k.String("MAIL_FAILURE_LIMIT"), 5),
		MailOpenTimeout:  parseDuration(k.String("MAIL_OPEN_TIMEOUT"), "1m"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
