// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/respond"
)

func writeError(t *testing.T, err error) (*httptest.ResponseRecorder, respond.ErrorEnvelope) {
	t.Helper()
	recorder := httptest.NewRecorder()
	respond.Error(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/verify", nil), err)

	var envelope respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return recorder, envelope
}

func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"token": "abc"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "no-store", recorder.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"token":"abc"}}`, recorder.Body.String())
}

/*
TestError_Mapping checks status, code and the headers added per status family.
*/
func TestError_Mapping(t *testing.T) {
	t.Run("unauthorized_challenge", func(t *testing.T) {
		recorder, envelope := writeError(t, apperr.Unauthorized("Invalid or expired code"))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, `Bearer realm="healthid"`, recorder.Header().Get("WWW-Authenticate"))
		assert.Equal(t, apperr.CodeUnauthorized, envelope.Code)
	})

	t.Run("rate_limited_retry_after", func(t *testing.T) {
		recorder, envelope := writeError(t, apperr.RateLimited(10))
		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "10", recorder.Header().Get("Retry-After"))
		assert.Equal(t, apperr.CodeRateLimited, envelope.Code)
	})

	t.Run("validation_details", func(t *testing.T) {
		recorder, envelope := writeError(t, apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: "otp", Message: "Must contain digits only"}))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		require.Len(t, envelope.Details, 1)
		assert.Equal(t, "otp", envelope.Details[0].Field)
	})

	t.Run("wrapped_upstream", func(t *testing.T) {
		unavailable := apperr.BadGateway("BankID is temporarily unavailable")
		recorder, envelope := writeError(t, fmt.Errorf("bankid_service_start_failed: %w: %w", unavailable, errors.New("dial tcp: i/o timeout")))
		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		assert.Equal(t, "BankID is temporarily unavailable", envelope.Error)
	})

	t.Run("unknown_error_hidden", func(t *testing.T) {
		recorder, envelope := writeError(t, errors.New("pq: password authentication failed"))
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Equal(t, apperr.CodeInternal, envelope.Code)
		assert.NotContains(t, recorder.Body.String(), "password")
		assert.Empty(t, recorder.Header().Get("WWW-Authenticate"))
	})
}
