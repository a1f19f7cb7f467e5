// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the error type every HealthID endpoint answers with.

Each domain package declares its failures as package-level sentinels built
from the constructors below, for example:

	var ErrInvalidOrExpiredCode = apperr.Unauthorized("Invalid or expired code")

Handlers pass errors to respond.Error untouched. Anything that is not an
[AppError] becomes a 500 whose cause is logged but never returned.

Status families used by the authentication flows:

  - 400 VALIDATION_ERROR: malformed identifiers or payloads.
  - 401 UNAUTHORIZED: wrong codes, failed or timed out BankID orders, dead refresh tokens.
  - 403 FORBIDDEN: a refresh token revoked by an account that does not own it.
  - 502 UPSTREAM_UNAVAILABLE: BankID or the SMS provider did not answer.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries an HTTP status, a machine-readable code and a client-safe
// message. Cause is logged server-side and never serialized.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	Details    []FieldError `json:"details,omitempty"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`

	// RetryAfter is in seconds. Only RATE_LIMITED sets it.
	RetryAfter int `json:"-"`
}

// FieldError is one failed rule of a VALIDATION_ERROR.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// Codes returned in the "code" field of error responses.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUnprocessable = "UNPROCESSABLE"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeUpstream      = "UPSTREAM_UNAVAILABLE"
)

func newError(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # Client Errors (4xx)

// ValidationError is a 400 with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	appErr := newError(http.StatusBadRequest, CodeValidation, msg)
	appErr.Details = details
	return appErr
}

// Unauthorized is a 401. respond.Error adds the WWW-Authenticate challenge.
func Unauthorized(msg string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, msg)
}

// Forbidden is a 403.
func Forbidden(msg string) *AppError {
	return newError(http.StatusForbidden, CodeForbidden, msg)
}

// NotFound is a 404 for a named resource, e.g. NotFound("Account").
func NotFound(resource string) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, resource+" not found")
}

// Conflict is a 409 for unique-constraint violations.
func Conflict(msg string) *AppError {
	return newError(http.StatusConflict, CodeConflict, msg)
}

// Unprocessable is a 422 for input that is well formed but refused downstream.
func Unprocessable(msg string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeUnprocessable, msg)
}

// RateLimited is a 429. respond.Error turns RetryAfter into the Retry-After header.
func RateLimited(retryAfterSeconds int) *AppError {
	appErr := newError(http.StatusTooManyRequests, CodeRateLimited,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
	appErr.RetryAfter = retryAfterSeconds
	return appErr
}

// # Server Errors (5xx)

// Internal wraps an unexpected failure in a 500 with a fixed client message.
func Internal(cause error) *AppError {
	appErr := newError(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
	appErr.Cause = cause
	return appErr
}

// BadGateway is a 502 for an identity or messaging provider that failed to
// answer. Callers wrap the transport error alongside it.
func BadGateway(msg string) *AppError {
	return newError(http.StatusBadGateway, CodeUpstream, msg)
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
