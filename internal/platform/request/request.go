// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil reads what the auth handlers need from a request: the
JSON payload, query parameters and the authenticated caller.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/ctxutil"
	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/platform/validate"
)

// maxBodyBytes caps auth payloads; the largest is a refresh or start token pair.
const maxBodyBytes = 4 << 10

/*
DecodeJSON decodes a single JSON object from the request body into target.
Unknown fields and bodies over maxBodyBytes are rejected.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Query returns a query-string parameter, or an empty string.
func Query(request *http.Request, name string) string {
	return request.URL.Query().Get(name)
}

/*
RequiredClaims ensures the request is authenticated and returns the user claims.

Returns:
  - *sec.AuthClaims: The authenticated user claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {
	claims := ctxutil.Claims(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}

/*
RequiredHandle returns the account handle of the currently authenticated caller.

Returns:
  - string: Account handle (UUID)
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredHandle(request *http.Request) (string, error) {
	claims, err := RequiredClaims(request)
	if err != nil {
		return "", err
	}
	return claims.Handle(), nil
}

// BearerToken returns the raw access token the caller authenticated with.
func BearerToken(request *http.Request) string {
	return ctxutil.AccessToken(request.Context())
}
