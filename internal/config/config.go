// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads wingsite configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DevJWTSecret is the signing secret used in development when WINGS_JWT_SECRET is unset.
// It is rejected in production.
const DevJWTSecret = "wingsite-dev-secret-change-me-now!"

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	DevJWTSecret,
	"your-secret-key",
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// MinJWTSecretLength is the minimum secret length accepted in production.
// HS256 keys shorter than the hash output weaken the signature.
const MinJWTSecretLength = 32

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverMySQL   = "mysql"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"WINGS_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"WINGS_DB_DSN" envDefault:"./data/wingsite.db"`
	JWTSecret  string `env:"WINGS_JWT_SECRET"`
	ServerHost string `env:"WINGS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"WINGS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"WINGS_ENV" envDefault:"development"`
	LogLevel   string `env:"WINGS_LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"WINGS_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Outbound email
	EmailAPIKey      string `env:"WINGS_EMAIL_API_KEY"`
	EmailAPIURL      string `env:"WINGS_EMAIL_API_URL" envDefault:"https://api.resend.com"`
	EmailFrom        string `env:"WINGS_EMAIL_FROM" envDefault:"Website <noreply@example.com>"`
	ContactRecipient string `env:"WINGS_CONTACT_RECIPIENT"`

	// Inbound webhooks; signature checks are skipped when empty
	WebhookSecret string `env:"WINGS_WEBHOOK_SECRET"`

	// Cache configuration
	RedisURL    string `env:"WINGS_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix string `env:"WINGS_CACHE_PREFIX" envDefault:"wings:"` // Redis key prefix
	CacheTTL    int    `env:"WINGS_CACHE_TTL" envDefault:"300"`       // Default cache TTL in seconds

	// Initial admin, created only when the users table is empty
	AdminEmail    string `env:"WINGS_ADMIN_EMAIL"`
	AdminPassword string `env:"WINGS_ADMIN_PASSWORD"`

	GeoIPDBPath string `env:"WINGS_GEOIP_DB"` // Optional GeoLite2-Country database for audit events

	RetentionDays int    `env:"WINGS_RETENTION_DAYS" envDefault:"90"`
	SiteStatus    string `env:"WINGS_SITE_STATUS" envDefault:"live"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// EmailEnabled returns true if outbound email is configured.
func (c Config) EmailEnabled() bool {
	return c.EmailAPIKey != "" && c.ContactRecipient != ""
}

// CacheTTLDuration returns the cache TTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverSQLite3, DriverMySQL:
	default:
		return nil, fmt.Errorf("WINGS_DB_DRIVER must be one of sqlite, sqlite3, mysql; got %q", cfg.DBDriver)
	}

	switch cfg.SiteStatus {
	case "live", "maintenance":
	default:
		return nil, fmt.Errorf("WINGS_SITE_STATUS must be live or maintenance; got %q", cfg.SiteStatus)
	}

	if err := cfg.validateJWTSecret(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateJWTSecret() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("WINGS_JWT_SECRET is required outside development; " +
				"generate one with: openssl rand -base64 32")
		}
		slog.Warn("WINGS_JWT_SECRET not set, using insecure development secret")
		c.JWTSecret = DevJWTSecret
		return nil
	}

	if c.IsDevelopment() {
		return nil
	}

	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("WINGS_JWT_SECRET must be at least %d bytes long, got %d bytes",
			MinJWTSecretLength, len(c.JWTSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.JWTSecret == weak {
			return errors.New("WINGS_JWT_SECRET is a known default value and must not be used")
		}
	}

	if !hasMinimumEntropy(c.JWTSecret) {
		slog.Warn("WINGS_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
