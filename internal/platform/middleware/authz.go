// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the HTTP middleware chain of the HealthID API.

Order of execution, outermost first:

  - RequestID and StructuredLogger: correlation id and per-request logger.
  - RateLimiter: per-IP token buckets, a stricter one on code sending routes.
  - PanicRecovery and CORS.
  - Authenticate: optional bearer token, verified against the blocklist.
  - RequireAuth: applied per route group by the domain handlers.
*/
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/constants"
	"github.com/taibuivan/healthid/internal/platform/ctxutil"
	"github.com/taibuivan/healthid/internal/platform/respond"
	"github.com/taibuivan/healthid/internal/platform/sec"
)

// TokenVerifier verifies a bearer token, including its blocklist status.
type TokenVerifier interface {
	VerifyAccessToken(context context.Context, token string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, verify the JWT via [TokenVerifier] (signature, expiry, blocklist).
//  4. Inject the claims and the raw token into the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyAccessToken(request.Context(), tokenStr)
			if err != nil {
				if appErr := apperr.As(err); appErr != nil && appErr.HTTPStatus >= http.StatusInternalServerError {
					respond.Error(writer, request, appErr)
					return
				}
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			markAccount(writer, claims.Handle())
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithCaller(request.Context(), claims, tokenStr)))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.Claims(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
