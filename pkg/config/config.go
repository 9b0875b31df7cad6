package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/storage"
)

// Rate limiter backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      storage.PostgresConfig
	Redis         storage.RedisConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Metrics server (separate port for scraping)
	MetricsPort string
}

// AuthConfig holds identity provider and credential settings
type AuthConfig struct {
	IssuerURL    string
	DiscoveryURL string
	Audience     string
	ClientID     string
	Leeway       time.Duration
	InitTimeout  time.Duration

	// TrustGatewayHeaders accepts X-User-* identity headers from the gateway
	TrustGatewayHeaders bool

	// DevMode enables the development identity fallback and exposes
	// internal error causes in responses
	DevMode bool

	AgentTouchTimeout time.Duration
}

// ProviderConfigured reports whether an identity provider is configured
func (a AuthConfig) ProviderConfigured() bool {
	return a.IssuerURL != "" || a.DiscoveryURL != ""
}

// ExpectedAudience returns the audience to enforce, defaulting to the
// client id
func (a AuthConfig) ExpectedAudience() string {
	if a.Audience != "" {
		return a.Audience
	}
	return a.ClientID
}

// RateLimitConfig holds per-caller request limits
type RateLimitConfig struct {
	Enabled           bool
	Backend           string
	Window            time.Duration
	AnonymousLimit    int
	UserLimit         int
	AgentLimit        int
	FallbackOnFailure bool

	// TrustedProxies lists proxy CIDRs or addresses whose forwarding
	// headers identify anonymous clients
	TrustedProxies []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string

	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEKEEPER_HOST", "0.0.0.0"),
		Port:            getEnv("GATEKEEPER_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEKEEPER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEKEEPER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEKEEPER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEKEEPER_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("GATEKEEPER_MAX_BODY_BYTES", 1<<20),
		MetricsPort:     getEnv("GATEKEEPER_METRICS_PORT", "9090"),
	}
}

func loadDatabaseConfig() storage.PostgresConfig {
	return storage.PostgresConfig{
		URL:         getEnv("GATEKEEPER_DATABASE_URL", ""),
		MaxConns:    getEnvInt("GATEKEEPER_DATABASE_MAX_CONNS", 25),
		MinConns:    getEnvInt("GATEKEEPER_DATABASE_MIN_CONNS", 5),
		Timeout:     getEnvDuration("GATEKEEPER_DATABASE_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("GATEKEEPER_DATABASE_MAX_LIFETIME", 30*time.Minute),
		MaxIdleTime: getEnvDuration("GATEKEEPER_DATABASE_MAX_IDLE_TIME", 5*time.Minute),
	}
}

func loadRedisConfig() storage.RedisConfig {
	return storage.RedisConfig{
		URL:        getEnv("GATEKEEPER_REDIS_URL", ""),
		Password:   getEnv("GATEKEEPER_REDIS_PASSWORD", ""),
		DB:         getEnvInt("GATEKEEPER_REDIS_DB", 0),
		MaxRetries: getEnvInt("GATEKEEPER_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("GATEKEEPER_REDIS_POOL_SIZE", 10),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IssuerURL:           getEnv("GATEKEEPER_OIDC_ISSUER_URL", ""),
		DiscoveryURL:        getEnv("GATEKEEPER_OIDC_DISCOVERY_URL", ""),
		Audience:            getEnv("GATEKEEPER_OIDC_AUDIENCE", ""),
		ClientID:            getEnv("GATEKEEPER_OIDC_CLIENT_ID", ""),
		Leeway:              getEnvDuration("GATEKEEPER_OIDC_LEEWAY", 30*time.Second),
		InitTimeout:         getEnvDuration("GATEKEEPER_OIDC_INIT_TIMEOUT", 10*time.Second),
		TrustGatewayHeaders: getEnvBool("GATEKEEPER_TRUST_GATEWAY_HEADERS", false),
		DevMode:             getEnvBool("GATEKEEPER_DEV_MODE", false),
		AgentTouchTimeout:   getEnvDuration("GATEKEEPER_AGENT_TOUCH_TIMEOUT", 5*time.Second),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("GATEKEEPER_RATE_LIMIT_ENABLED", true),
		Backend:           strings.ToLower(getEnv("GATEKEEPER_RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
		Window:            getEnvDuration("GATEKEEPER_RATE_LIMIT_WINDOW", time.Minute),
		AnonymousLimit:    getEnvInt("GATEKEEPER_RATE_LIMIT_ANONYMOUS", 100),
		UserLimit:         getEnvInt("GATEKEEPER_RATE_LIMIT_USER", 1000),
		AgentLimit:        getEnvInt("GATEKEEPER_RATE_LIMIT_AGENT", 5000),
		FallbackOnFailure: getEnvBool("GATEKEEPER_RATE_LIMIT_FAIL_OPEN", true),
		TrustedProxies:    getEnvList("GATEKEEPER_TRUSTED_PROXIES"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("GATEKEEPER_LOG_LEVEL", "info"),
		MetricsEnabled:     getEnvBool("GATEKEEPER_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("GATEKEEPER_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GATEKEEPER_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GATEKEEPER_OTEL_SERVICE_NAME", "gatekeeper"),
		OTelServiceVersion: getEnv("GATEKEEPER_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("GATEKEEPER_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("GATEKEEPER_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Observability.MetricsEnabled {
		if c.Server.MetricsPort == "" {
			return fmt.Errorf("metrics port is required when metrics are enabled")
		}
		if c.Server.Port == c.Server.MetricsPort {
			return fmt.Errorf("server port and metrics port must be different")
		}
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if !c.Auth.ProviderConfigured() && !c.Auth.DevMode && !c.Auth.TrustGatewayHeaders {
		return fmt.Errorf("an OIDC issuer or discovery URL is required unless dev mode or gateway header trust is enabled")
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendMemory:
		case RateLimitBackendRedis:
			if c.Redis.URL == "" {
				return fmt.Errorf("redis URL is required for the redis rate limit backend")
			}
		default:
			return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.AnonymousLimit <= 0 || c.RateLimit.UserLimit <= 0 || c.RateLimit.AgentLimit <= 0 {
			return fmt.Errorf("rate limits must be positive")
		}
		for _, proxy := range c.RateLimit.TrustedProxies {
			if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
				return fmt.Errorf("invalid trusted proxy: %s", proxy)
			}
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as trimmed,
// non-empty values
func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
