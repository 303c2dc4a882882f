// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every validation failure returned from Load.
// A process that receives it must not serve traffic.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	// MinSigningKeyBytes is the shortest accepted HMAC signing key.
	MinSigningKeyBytes = 32
	// MinAccessTTLMinutes and MaxAccessTTLMinutes bound JWT_ACCESS_TTL_MINUTES (inclusive).
	MinAccessTTLMinutes = 5
	MaxAccessTTLMinutes = 60
	// MinCleanupIntervalMinutes is the floor applied to CLEANUP_INTERVAL_MINUTES.
	MinCleanupIntervalMinutes = 5
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Required by every command that touches the store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBMigrateOnStart applies embedded migrations before the server starts serving.
	DBMigrateOnStart bool `mapstructure:"DB_MIGRATE_ON_START"`

	// JWTSigningKey is the HMAC key for access tokens. At least 32 bytes; never logged.
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	// JWTIssuer is the iss claim (e.g. "room-booking-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "room-booking-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTLMinutes is the access token lifetime in minutes, 5..60.
	JWTAccessTTLMinutes int `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	// JWTRefreshTTLDays is the refresh token lifetime in days.
	JWTRefreshTTLDays int `mapstructure:"JWT_REFRESH_TTL_DAYS"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RefreshRotateMaxRetries bounds retries of a rotation that lost a store conflict.
	RefreshRotateMaxRetries int `mapstructure:"REFRESH_ROTATE_MAX_RETRIES"`

	// CleanupEnabled turns the retention sweeper on in cmd/server.
	CleanupEnabled bool `mapstructure:"CLEANUP_ENABLED"`
	// CleanupIntervalMinutes is the sweep period; raised to 5 when lower.
	CleanupIntervalMinutes int `mapstructure:"CLEANUP_INTERVAL_MINUTES"`
	// CleanupRevokedGrace keeps revoked refresh rows this long before purge (e.g. "24h"). Zero purges eagerly.
	CleanupRevokedGrace string `mapstructure:"CLEANUP_REVOKED_GRACE"`

	// TenantBaseDomain is the apex domain tenants are served under (e.g. "rooms.example.com").
	TenantBaseDomain string `mapstructure:"TENANT_BASE_DOMAIN"`
	// PlatformSubdomain is the label that selects platform scope (e.g. "admin").
	PlatformSubdomain string `mapstructure:"PLATFORM_SUBDOMAIN"`

	// Env is the application environment ("dev" or "prod"); selects the log encoder.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Any returned error wraps ErrInvalidConfig.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MIGRATE_ON_START", false)
	v.SetDefault("JWT_SIGNING_KEY", "")
	v.SetDefault("JWT_ISSUER", "room-booking-auth")
	v.SetDefault("JWT_AUDIENCE", "room-booking-api")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_TTL_DAYS", 7)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REFRESH_ROTATE_MAX_RETRIES", 3)
	v.SetDefault("CLEANUP_ENABLED", true)
	v.SetDefault("CLEANUP_INTERVAL_MINUTES", 60)
	v.SetDefault("CLEANUP_REVOKED_GRACE", "0s")
	v.SetDefault("TENANT_BASE_DOMAIN", "localhost")
	v.SetDefault("PLATFORM_SUBDOMAIN", "admin")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "room-booking-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field that would weaken the engine if served as-is and applies
// the floors that are not fatal. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.GRPCAddr == "" {
		return invalid("GRPC_ADDR must be set")
	}
	if len(c.JWTSigningKey) < MinSigningKeyBytes {
		return invalid("JWT_SIGNING_KEY must be at least %d bytes", MinSigningKeyBytes)
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return invalid("JWT_ISSUER and JWT_AUDIENCE must be set")
	}
	if c.JWTAccessTTLMinutes < MinAccessTTLMinutes || c.JWTAccessTTLMinutes > MaxAccessTTLMinutes {
		return invalid("JWT_ACCESS_TTL_MINUTES must be between %d and %d, got %d",
			MinAccessTTLMinutes, MaxAccessTTLMinutes, c.JWTAccessTTLMinutes)
	}
	if c.JWTRefreshTTLDays < 1 {
		return invalid("JWT_REFRESH_TTL_DAYS must be at least 1, got %d", c.JWTRefreshTTLDays)
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return invalid("BCRYPT_COST must be between 4 and 31")
	}
	if c.RefreshRotateMaxRetries < 1 || c.RefreshRotateMaxRetries > 10 {
		return invalid("REFRESH_ROTATE_MAX_RETRIES must be between 1 and 10")
	}

	if c.CleanupIntervalMinutes < MinCleanupIntervalMinutes {
		c.CleanupIntervalMinutes = MinCleanupIntervalMinutes
	}
	if c.CleanupRevokedGrace == "" {
		c.CleanupRevokedGrace = "0s"
	}
	if d, err := time.ParseDuration(c.CleanupRevokedGrace); err != nil || d < 0 {
		return invalid("CLEANUP_REVOKED_GRACE must be a non-negative duration, got %q", c.CleanupRevokedGrace)
	}
	return nil
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

// CleanupInterval returns the sweep period, never below the 5 minute floor.
func (c *Config) CleanupInterval() time.Duration {
	m := c.CleanupIntervalMinutes
	if m < MinCleanupIntervalMinutes {
		m = MinCleanupIntervalMinutes
	}
	return time.Duration(m) * time.Minute
}

// RevokedGrace returns how long revoked refresh rows are retained. Zero if unset or invalid.
func (c *Config) RevokedGrace() time.Duration {
	d, err := time.ParseDuration(c.CleanupRevokedGrace)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
