package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskforge/taskforge/pkg/observability"
	"github.com/taskforge/taskforge/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Auth configuration
	Auth AuthConfig

	// Admin bootstrap configuration
	Admin AdminConfig

	// Security middleware configuration
	Security SecurityConfig

	// Observability configuration
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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token signing and session settings
type AuthConfig struct {
	// SecretKey signs access tokens. Required; there is no safe default.
	SecretKey string

	// Algorithm is the JWT signing algorithm (HS256, HS384, HS512).
	Algorithm string

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration

	// CookieSecure marks the session cookie Secure (disable for local HTTP dev).
	CookieSecure bool
}

// AdminConfig holds the bootstrap admin account settings. The configured
// values are authoritative: the reconcile repairs the stored account to
// match them on every startup.
type AdminConfig struct {
	Username string
	Password string
	Email    string
	FullName string
}

// SecurityConfig holds settings for the security middleware chain
type SecurityConfig struct {
	// MaxRequestSize is the request body size limit in bytes.
	MaxRequestSize int64

	// AllowedOrigins is the set of origins accepted by the CSRF check.
	AllowedOrigins []string

	// LogAllRequests forces an audit entry for every request, not just
	// sensitive or failed ones.
	LogAllRequests bool

	// RedisURL enables the shared rate limit counter store when set.
	RedisURL string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Admin:         loadAdminConfig(),
		Security:      loadSecurityConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8000"),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads database configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.URL = dbURL
	}
	if dbType := getEnv("DB_TYPE", ""); dbType != "" {
		cfg.Type = strings.ToLower(dbType)
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		cfg.Host = host
	}
	if port := getEnvInt("DB_PORT", 0); port > 0 {
		cfg.Port = port
	}
	if name := getEnv("DB_NAME", ""); name != "" {
		cfg.Name = name
	}
	if user := getEnv("DB_USER", ""); user != "" {
		cfg.User = user
	}
	if password := getEnv("DB_PASSWORD", ""); password != "" {
		cfg.Password = password
	}
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}
	if idleConns := getEnvInt("DB_MAX_IDLE_CONNS", 0); idleConns > 0 {
		cfg.MaxIdleConns = idleConns
	}
	if lifetime := getEnvDuration("DB_CONN_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.ConnMaxLifetime = lifetime
	}

	return cfg
}

// loadAuthConfig loads token settings from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SecretKey:    getEnv("SECRET_KEY", ""),
		Algorithm:    getEnv("ALGORITHM", "HS256"),
		TokenTTL:     time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		CookieSecure: getEnvBool("COOKIE_SECURE", true),
	}
}

// loadAdminConfig loads the bootstrap admin settings from environment
func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Username: getEnv("ADMIN_USERNAME", "admin"),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Email:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		FullName: getEnv("ADMIN_FULL_NAME", "Administrator"),
	}
}

// loadSecurityConfig loads security middleware settings from environment
func loadSecurityConfig() SecurityConfig {
	origins := strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return SecurityConfig{
		MaxRequestSize: getEnvInt64("MAX_REQUEST_SIZE", 10*1024*1024),
		AllowedOrigins: origins,
		LogAllRequests: getEnvBool("LOG_ALL_REQUESTS", false),
		RedisURL:       getEnv("REDIS_URL", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported signing algorithm: %s (must be HS256, HS384, or HS512)", c.Auth.Algorithm)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if c.Admin.Username == "" {
		return fmt.Errorf("admin username is required")
	}
	if c.Security.MaxRequestSize <= 0 {
		return fmt.Errorf("max request size must be positive")
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
