// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON envelopes every HealthID endpoint answers with.
//
// Success bodies are wrapped as {"data": ...}; failures as
// {"error", "code", "details"}. Responses carry Cache-Control: no-store since
// most of them contain credentials or one-time correlation handles.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/ctxutil"
)

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// bearerChallenge is sent with every 401 so clients know which scheme to retry with.
const bearerChallenge = `Bearer realm="healthid"`

// JSON writes payload with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	header := writer.Header()
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Cache-Control", "no-store")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 response with data wrapped in the success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

/*
Error converts any error into the error envelope.

Description: An [apperr.AppError] anywhere in the chain decides the status.
Everything else is logged with the request id and answered as a 500 without
details. 401 answers carry a Bearer challenge and 429 answers a Retry-After.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request (Source of the request logger)
  - err: error
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	context := request.Context()
	logger := ctxutil.Logger(context)

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		appError = apperr.Internal(err)
	}

	switch {
	case appError.HTTPStatus >= http.StatusInternalServerError:
		cause := appError.Cause
		if cause == nil {
			cause = err
		}
		logger.ErrorContext(context, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.RequestID(context)),
			slog.Any("cause", cause),
		)
	case appError.HTTPStatus == http.StatusUnauthorized:
		writer.Header().Set("WWW-Authenticate", bearerChallenge)
	case appError.HTTPStatus == http.StatusTooManyRequests && appError.RetryAfter > 0:
		writer.Header().Set("Retry-After", strconv.Itoa(appError.RetryAfter))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
