// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, providers) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/healthid/internal/platform/constants"
)

// # Configuration Schema

// Config holds all runtime configuration for the HealthID API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// NodeID seeds the snowflake generator for internal account ids.
	// Each replica must use a distinct value (0-1023).
	NodeID int64 `env:"NODE_ID" envDefault:"1"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath overrides the migrations embedded in the binary when set.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Access tokens
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	JWTTTLSeconds int    `env:"JWT_TTL" envDefault:"3600"`

	// One-time codes
	OTPTTLMinutes int `env:"OTP_TTL"    envDefault:"5"`
	OTPLength     int `env:"OTP_LENGTH" envDefault:"6"`

	// Refresh tokens
	RefreshTokenTTLDays int  `env:"REFRESH_TOKEN_TTL" envDefault:"90"`
	RefreshStrict       bool `env:"REFRESH_STRICT"    envDefault:"false"`

	// Federated identity provider (BankID relying party)
	BankIDAPIURL          string        `env:"BANKID_API_URL"            envDefault:"https://appapi2.test.bankid.com/rp/v6.0"`
	BankIDCertPath        string        `env:"BANKID_RP_CERT_PATH"       envDefault:"./.certificates/rp-cert.pem"`
	BankIDKeyPath         string        `env:"BANKID_RP_KEY_PATH"        envDefault:"./.certificates/rp-key.pem"`
	BankIDCACertPath      string        `env:"BANKID_CA_CERT_PATH"       envDefault:"./.certificates/ca-cert.crt"`
	BankIDCertPassphrase  string        `env:"BANKID_RP_CERT_PASSPHRASE"`
	BankIDOrderTTL        time.Duration `env:"BANKID_ORDER_TTL"          envDefault:"15m"`
	BankIDPollInterval    time.Duration `env:"BANKID_POLL_INTERVAL"      envDefault:"2s"`
	BankIDPollTimeout     time.Duration `env:"BANKID_POLL_TIMEOUT"       envDefault:"25s"`
	BankIDMaxPollAttempts int           `env:"BANKID_MAX_POLL_ATTEMPTS"  envDefault:"90"`
	BankIDMaxRetries      uint          `env:"BANKID_MAX_RETRIES"        envDefault:"3"`

	// Delegated code verification (Twilio Verify)
	TwilioSID       string `env:"TWILIO_SID"`
	TwilioAuthToken string `env:"TWILIO_AUTH_TOKEN"`
	TwilioServiceID string `env:"TWILIO_SERVICE_ID"`

	// WhitelistedNumbers bypass the delegated check outside production.
	WhitelistedNumbers []string `env:"WHITELISTED_NUMBERS" envSeparator:","`

	// Outbound mail for e-mail codes. An empty host logs codes instead.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromEmail    string `env:"FROM_EMAIL"    envDefault:"no-reply@healthid.app"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// TrustedProxies lists the CIDRs (e.g. "10.0.0.0/8") whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means the socket address is
	// the client address.
	TrustedProxies []netip.Prefix `env:"TRUSTED_PROXIES" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects values that parse correctly but cannot drive the auth core.
func (c *Config) validate() error {
	switch {
	case c.JWTTTLSeconds <= 0:
		return fmt.Errorf("config: JWT_TTL must be positive")
	case c.OTPTTLMinutes <= 0:
		return fmt.Errorf("config: OTP_TTL must be positive")
	case c.OTPLength < 4 || c.OTPLength > 10:
		return fmt.Errorf("config: OTP_LENGTH must be between 4 and 10")
	case c.RefreshTokenTTLDays <= 0:
		return fmt.Errorf("config: REFRESH_TOKEN_TTL must be positive")
	case c.BankIDPollInterval <= 0 || c.BankIDPollTimeout <= 0:
		return fmt.Errorf("config: BANKID poll interval and timeout must be positive")
	case c.BankIDMaxPollAttempts <= 0:
		return fmt.Errorf("config: BANKID_MAX_POLL_ATTEMPTS must be positive")
	case c.BankIDOrderTTL <= 0:
		return fmt.Errorf("config: BANKID_ORDER_TTL must be positive")
	case c.BankIDPollTimeout >= constants.GlobalRequestTimeout:
		return fmt.Errorf("config: BANKID_POLL_TIMEOUT must be shorter than the %s request timeout", constants.GlobalRequestTimeout)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns origins accepted by CORS besides the first-party domain.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}

// # Derived Durations

// AccessTokenTTL returns JWT_TTL as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTTTLSeconds) * time.Second
}

// OTPTTL returns OTP_TTL as a duration.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns REFRESH_TOKEN_TTL as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}
