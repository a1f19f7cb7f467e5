// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/healthid")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "secret")
}

/*
TestLoad_Defaults verifies the documented defaults of the auth core.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL())
	assert.Equal(t, 90*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.BankIDOrderTTL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

/*
TestLoad_WhitelistedNumbers checks the comma separated allow-list.
*/
func TestLoad_WhitelistedNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("WHITELISTED_NUMBERS", "+46700000000,+46700000001")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"+46700000000", "+46700000001"}, cfg.WhitelistedNumbers)
}

/*
TestLoad_TrustedProxies parses proxy CIDRs and rejects bare addresses.
*/
func TestLoad_TrustedProxies(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,fd00::/8")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("fd00::/8")}, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.1")
	_, err = config.Load()
	assert.Error(t, err)
}

/*
TestLoad_Rejects covers missing required values and out-of-range settings.
*/
func TestLoad_Rejects(t *testing.T) {
	t.Run("missing_secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/healthid")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("otp_length", func(t *testing.T) {
		setRequired(t)
		t.Setenv("OTP_LENGTH", "2")

		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("no_poll_attempts", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BANKID_MAX_POLL_ATTEMPTS", "0")

		_, err := config.Load()
		assert.ErrorContains(t, err, "BANKID_MAX_POLL_ATTEMPTS")
	})

	t.Run("no_order_ttl", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BANKID_ORDER_TTL", "0s")

		_, err := config.Load()
		assert.ErrorContains(t, err, "BANKID_ORDER_TTL")
	})

	t.Run("poll_outlives_request", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BANKID_POLL_TIMEOUT", "45s")

		_, err := config.Load()
		assert.ErrorContains(t, err, "BANKID_POLL_TIMEOUT")
	})
}
