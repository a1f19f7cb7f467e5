// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/api"
	"github.com/taibuivan/healthid/internal/platform/config"
	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/internal/users/auth"
)

// rejectingVerifier refuses every bearer token.
type rejectingVerifier struct{}

func (rejectingVerifier) VerifyAccessToken(_ context.Context, _ string) (*sec.AuthClaims, error) {
	return nil, errors.New("token expired")
}

func newTestServer(t *testing.T, trustedProxies ...netip.Prefix) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{}, logger)
	cfg := &config.Config{ServerPort: "0", Environment: "production", TrustedProxies: trustedProxies}

	// Only routes rejected before reaching a service are exercised here.
	server := api.NewServer(ctx, cfg, logger, rejectingVerifier{}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(auth.NewService(auth.Dependencies{Logger: logger}), 6),
		Account:   account.NewHandler(nil),
	})
	return server.Handler()
}

func serve(handler http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, nil)
	request.RemoteAddr = "198.51.100.4:51000"
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServer_RequestID(t *testing.T) {
	handler := newTestServer(t)

	recorder := serve(handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	recorder = serve(handler, http.MethodGet, "/health", map[string]string{"X-Request-ID": "trace-1"})
	assert.Equal(t, "trace-1", recorder.Header().Get("X-Request-ID"))
}

/*
TestServer_ProtectedRoutes requires a valid bearer token on the account and logout routes.
*/
func TestServer_ProtectedRoutes(t *testing.T) {
	handler := newTestServer(t)

	cases := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
	}{
		{"me_anonymous", http.MethodGet, "/api/v1/users/me", nil},
		{"delete_me_anonymous", http.MethodDelete, "/api/v1/users/me", nil},
		{"logout_anonymous", http.MethodPost, "/api/v1/auth/logout", nil},
		{"me_bad_scheme", http.MethodGet, "/api/v1/users/me", map[string]string{"Authorization": "Basic abc"}},
		{"me_rejected_token", http.MethodGet, "/api/v1/users/me", map[string]string{"Authorization": "Bearer abc"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := serve(handler, tc.method, tc.path, tc.headers)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Contains(t, recorder.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}
}

func TestServer_CORS(t *testing.T) {
	handler := newTestServer(t)

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://healthid.app", true},
		{"https://web.healthid.app", true},
		{"http://web.healthid.app", false},
		{"https://evilhealthid.app", false},
		{"https://example.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.origin, func(t *testing.T) {
			recorder := serve(handler, http.MethodOptions, "/api/v1/auth/otp", map[string]string{"Origin": tc.origin})
			require.Equal(t, http.StatusNoContent, recorder.Code)
			if tc.allowed {
				assert.Equal(t, tc.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestServer_CodeSendThrottle stops repeated code sends from one IP after the
burst, before the payload is even decoded.
*/
func TestServer_CodeSendThrottle(t *testing.T) {
	handler := newTestServer(t)

	for range 3 {
		recorder := serve(handler, http.MethodPost, "/api/v1/auth/otp", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	}

	recorder := serve(handler, http.MethodPost, "/api/v1/auth/otp", nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "10", recorder.Header().Get("Retry-After"))

	// Verification is not throttled by the send limiter
	recorder = serve(handler, http.MethodPost, "/api/v1/auth/otp/verify", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

/*
TestServer_RefreshWithStaleBearer reaches the refresh handler even when the
client still sends an expired access token.
*/
func TestServer_RefreshWithStaleBearer(t *testing.T) {
	handler := newTestServer(t)

	recorder := serve(handler, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"Authorization": "Bearer expired.jwt.here"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, recorder.Header().Get("WWW-Authenticate"))
}

/*
TestServer_ForwardedForRotation keeps throttling one socket that invents a new
X-Forwarded-For address on every request.
*/
func TestServer_ForwardedForRotation(t *testing.T) {
	handler := newTestServer(t)

	statuses := map[int]int{}
	for i := range 20 {
		recorder := serve(handler, http.MethodPost, "/api/v1/auth/otp", map[string]string{
			"X-Forwarded-For": "203.0.113." + strconv.Itoa(i+1),
			"X-Real-IP":       "192.0.2." + strconv.Itoa(i+1),
		})
		statuses[recorder.Code]++
	}

	assert.Equal(t, 3, statuses[http.StatusBadRequest])
	assert.Equal(t, 17, statuses[http.StatusTooManyRequests])
}

/*
TestServer_TrustedProxy buckets by the forwarded address only when the socket
belongs to a configured proxy.
*/
func TestServer_TrustedProxy(t *testing.T) {
	handler := newTestServer(t, netip.MustParsePrefix("198.51.100.0/24"))

	for i := range 5 {
		recorder := serve(handler, http.MethodPost, "/api/v1/auth/otp", map[string]string{
			"X-Forwarded-For": "203.0.113." + strconv.Itoa(i+1) + ", 198.51.100.9",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	}
}
