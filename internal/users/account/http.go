// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the HTTP delivery layer for the caller's own account.

# Security

All endpoints in this package require an active authentication session provided
by the RequireAuth middleware.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/healthid/internal/platform/middleware"
	requestutil "github.com/taibuivan/healthid/internal/platform/request"
	"github.com/taibuivan/healthid/internal/platform/respond"
)

// Handler implements the HTTP layer for account self-service.
type Handler struct {
	resolver     *Resolver
	authenticate func(http.Handler) http.Handler
}

// NewHandler constructs a new account [Handler].
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// WithAuthentication sets the middleware that verifies the bearer token
// ahead of [middleware.RequireAuth].
func (handler *Handler) WithAuthentication(authenticate func(http.Handler) http.Handler) *Handler {
	handler.authenticate = authenticate
	return handler
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	if handler.authenticate != nil {
		router.Use(handler.authenticate)
	}
	router.Use(middleware.RequireAuth)

	router.Get("/me", handler.getMe)
	router.Delete("/me", handler.deleteMe)

	return router
}

/*
GET /api/v1/users/me.

Description: Retrieves the profile projection of the authenticated account.

Response:
  - 200: Profile
  - 401: ErrUnauthorized: Authentication required
  - 404: Account deleted since the token was issued
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	handle, err := requestutil.RequiredHandle(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.resolver.GetProfile(request.Context(), handle)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
DELETE /api/v1/users/me.

Description: Permanently deletes the authenticated account, its bindings and
its refresh tokens.

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	handle, err := requestutil.RequiredHandle(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.resolver.DeleteAccount(request.Context(), handle); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
