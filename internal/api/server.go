// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api assembles the HealthID HTTP server: the middleware chain, the
health probes and the versioned route groups of the auth and account domains.

Route map:

  - GET  /health, /ready: container probes, never authenticated.
  - /api/v1/auth/*: code, BankID and session endpoints.
  - /api/v1/users/*: the caller's own account (bearer token required).
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/healthid/internal/platform/config"
	"github.com/taibuivan/healthid/internal/platform/constants"
	"github.com/taibuivan/healthid/internal/platform/middleware"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// Handlers groups the handler sets mounted by [NewServer].
type Handlers struct {
	// Liveness answers /health while the process is alive.
	Liveness http.HandlerFunc

	// Readiness answers /ready with 200 only when Postgres and Redis respond.
	Readiness http.HandlerFunc

	// Auth handles the code, BankID and session routes.
	Auth *auth.Handler

	// Account serves the caller's own profile.
	Account *account.Handler
}

// # Server Initialization

/*
NewServer builds the router and the underlying [http.Server].

Description: Every request gets a correlation id, its resolved client
address, a request logger, the global rate limit, panic recovery and CORS.
Bearer authentication runs only on the protected routes.
The provider-bound auth routes additionally share a strict per-IP limiter.
Both limiters evict idle clients until context is cancelled.

Parameters:
  - context: context.Context (Lifetime of the background workers)
  - cfg: *config.Config
  - log: *slog.Logger
  - verifier: middleware.TokenVerifier (Signature, expiry and blocklist check)
  - h: Handlers

Returns:
  - *Server: Ready to ListenAndServe
*/
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIP(cfg.TrustedProxies))
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.NewRateLimiter(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler)
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Bearer tokens are only read on protected routes, so a stale token never
	// blocks refresh or a new login.
	authenticate := middleware.Authenticate(verifier)
	sendLimiter := middleware.NewRateLimiter(context, constants.CodeSendRateLimitRPS, constants.CodeSendRateLimitBurst)
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.WithThrottle(sendLimiter.Handler).WithAuthentication(authenticate).Routes())
		api.Mount("/users", h.Account.WithAuthentication(authenticate).Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the fully assembled router, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe blocks until the server is closed or fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown waits up to timeout for in-flight requests, BankID polls included.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
