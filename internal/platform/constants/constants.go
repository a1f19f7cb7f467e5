// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the values shared across HealthID packages.

Categories:

  - Server Timing: HTTP server timeouts, sized so a BankID poll fits in a request.
  - Rate Limiting: global and code sending token buckets.
  - Authentication: token issuer and mode binding lifetime.
  - Redis Prefixes: the key namespace of every ephemeral auth record.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "healthid-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// It must outlast GlobalRequestTimeout so a federated poll can still answer.
	DefaultWriteTimeout = 35 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// CodeSendRateLimitRPS bounds code sends and BankID order starts per IP (one per 10s).
	CodeSendRateLimitRPS = 0.1

	// CodeSendRateLimitBurst lets a user retry a few times before the bucket empties.
	CodeSendRateLimitBurst = 3
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "healthid.app"

	// AuthModeTTL is how long a correlation handle remembers its auth mode.
	AuthModeTTL = 10 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixAuthMode     = "auth:mode:"
	RedisPrefixOTP          = "auth:otp:"
	RedisPrefixBankIDOrder  = "auth:bankid:order:"
	RedisPrefixRefreshToken = "auth:refresh:"
	RedisPrefixBlocklist    = "auth:blocklist:"
)
