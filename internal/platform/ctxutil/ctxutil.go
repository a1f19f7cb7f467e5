// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores per-request values in [context.Context]: the
// correlation id, the request logger and the authenticated caller.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/healthid/internal/platform/sec"
)

// key is unexported so no other package can collide with these entries.
type key int

const (
	keyRequestID key = iota
	keyLogger
	keyCaller
	keyClientIP
)

// caller is what [Authenticate] learned from a valid bearer token.
type caller struct {
	claims      *sec.AuthClaims
	accessToken string
}

// # Request Tracing

// WithRequestID returns a copy of ctx carrying the X-Request-ID value.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns the correlation id, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}

// WithClientIP returns a copy of ctx carrying the resolved client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP returns the address resolved by the ClientIP middleware, or an empty string.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(keyClientIP).(string)
	return ip
}

// # Structured Logging

// WithLogger returns a copy of ctx carrying the request logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, logger)
}

// Logger returns the request logger, falling back to [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(keyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Caller Identity

// WithCaller returns a copy of ctx carrying verified claims and the raw
// bearer token they were read from. Logout needs the raw token to blocklist it.
func WithCaller(ctx context.Context, claims *sec.AuthClaims, accessToken string) context.Context {
	return context.WithValue(ctx, keyCaller, caller{claims: claims, accessToken: accessToken})
}

// Claims returns the caller's claims, or nil for anonymous requests.
func Claims(ctx context.Context) *sec.AuthClaims {
	current, _ := ctx.Value(keyCaller).(caller)
	return current.claims
}

// AccessToken returns the caller's raw bearer token, or an empty string.
func AccessToken(ctx context.Context) string {
	current, _ := ctx.Value(keyCaller).(caller)
	return current.accessToken
}
