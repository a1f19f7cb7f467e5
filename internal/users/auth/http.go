// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/healthid/internal/platform/middleware"
	requestutil "github.com/taibuivan/healthid/internal/platform/request"
	"github.com/taibuivan/healthid/internal/platform/respond"
	"github.com/taibuivan/healthid/internal/platform/validate"
	"github.com/taibuivan/healthid/internal/users/account"
)

// # Field Identifiers

const (
	FieldType           = "type"
	FieldValue          = "value"
	FieldToken          = "token"
	FieldOTP            = "otp"
	FieldRefreshToken   = "refreshToken"
	FieldAutoStartToken = "autoStartToken"
	FieldJWT            = "jwt"
	FieldQRData         = "qrData"
	FieldMessage        = "message"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	authService  *Service
	codeLength   int
	throttle     func(http.Handler) http.Handler
	authenticate func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler]. codeLength is the length of locally
// issued codes and bounds what the verify endpoint accepts.
func NewHandler(service *Service, codeLength int) *Handler {
	return &Handler{authService: service, codeLength: codeLength}
}

// WithThrottle guards the routes that reach a provider (code sends and BankID
// order starts) with an extra middleware, typically a strict rate limiter.
func (handler *Handler) WithThrottle(throttle func(http.Handler) http.Handler) *Handler {
	handler.throttle = throttle
	return handler
}

// WithAuthentication sets the middleware that verifies bearer tokens on the
// protected routes. Public routes never see it.
func (handler *Handler) WithAuthentication(authenticate func(http.Handler) http.Handler) *Handler {
	handler.authenticate = authenticate
	return handler
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /otp                 : Sends a code by e-mail or SMS (throttled).
//   - POST /otp/verify          : Exchanges a code for a token pair.
//   - POST /refresh             : Exchanges a refresh token for an access token.
//   - GET  /bankid/startToken   : Starts a BankID order (throttled).
//   - POST /bankid/verify       : Waits for the order and issues a token pair.
//   - GET  /bankid/qr           : Current animated QR payload.
//   - POST /bankid/cancel       : Aborts an order.
//   - POST /logout              : Revokes the session (authenticated).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints that reach a provider
	router.Group(func(r chi.Router) {
		if handler.throttle != nil {
			r.Use(handler.throttle)
		}
		r.Post("/otp", handler.requestCode)
		r.Get("/bankid/startToken", handler.startBankID)
	})

	// Public endpoints
	router.Post("/otp/verify", handler.verifyCode)
	router.Post("/refresh", handler.refresh)
	router.Post("/bankid/verify", handler.verifyBankID)
	router.Get("/bankid/qr", handler.bankIDQR)
	router.Post("/bankid/cancel", handler.cancelBankID)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		if handler.authenticate != nil {
			r.Use(handler.authenticate)
		}
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request Payloads

type codeRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type codeVerifyRequest struct {
	Token string `json:"token"`
	OTP   string `json:"otp"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type bankIDRequest struct {
	AutoStartToken string `json:"autoStartToken"`
}

// # Validation

// validateCodeRequest normalises the identifier for its mode and checks it.
func validateCodeRequest(input codeRequest) (account.Mode, string, error) {
	validator := &validate.Validator{}
	validator.Required(FieldType, input.Type).
		OneOf(FieldType, input.Type, string(account.ModeEmail), string(account.ModePhone)).
		Required(FieldValue, input.Value)
	if err := validator.Err(); err != nil {
		return "", "", err
	}

	mode := account.Mode(input.Type)
	var identifier string
	switch mode {
	case account.ModeEmail:
		identifier = validate.NormalizeEmail(input.Value)
		validator.Email(FieldValue, identifier).MaxLen(FieldValue, identifier, 254)
	case account.ModePhone:
		identifier = validate.NormalizePhone(input.Value)
		validator.Phone(FieldValue, identifier)
	}

	if err := validator.Err(); err != nil {
		return "", "", err
	}
	return mode, identifier, nil
}

// validateCodeVerifyRequest treats the handle as opaque: a code id for e-mail,
// the number itself for phone. Delegated codes may differ in length from local ones.
func validateCodeVerifyRequest(input codeVerifyRequest, codeLength int) error {
	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		MaxLen(FieldToken, input.Token, 64).
		Numeric(FieldOTP, input.OTP).
		Range(FieldOTP, len(input.OTP), 4, max(codeLength, 10))
	return validator.Err()
}

/*
POST /api/v1/auth/otp.

Description: Sends a code to an e-mail address (type EMAIL) or phone number
(type PHONE) and returns the correlation token to verify it with.

Request:
  - Body: codeRequest (Type, Value)

Response:
  - 200: {message, token}
  - 400: Validation failure
  - 422: ErrUndeliverable: The provider refused the phone number
*/
func (handler *Handler) requestCode(writer http.ResponseWriter, request *http.Request) {
	var input codeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	mode, identifier, err := validateCodeRequest(input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handle, err := handler.authService.RequestCode(request.Context(), mode, identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "OTP sent",
		FieldToken:   handle,
	})
}

/*
POST /api/v1/auth/otp/verify.

Request:
  - Body: codeVerifyRequest (Token, OTP)

Response:
  - 200: token.Pair
  - 401: Invalid or expired code
*/
func (handler *Handler) verifyCode(writer http.ResponseWriter, request *http.Request) {
	var input codeVerifyRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := validateCodeVerifyRequest(input, handler.codeLength); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.VerifyCode(request.Context(), input.Token, input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
POST /api/v1/auth/refresh.

Description: Issues a new access token. The refresh token is kept and its
lifetime restarts.

Response:
  - 200: {jwt}
  - 401: Invalid or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken).UUID(FieldRefreshToken, input.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	accessToken, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldJWT: accessToken})
}

// GET /api/v1/auth/bankid/startToken.
func (handler *Handler) startBankID(writer http.ResponseWriter, request *http.Request) {
	autoStartToken, err := handler.authService.StartBankID(request.Context(), middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldAutoStartToken: autoStartToken})
}

/*
POST /api/v1/auth/bankid/verify.

Description: Blocks until the order completes, fails or times out. The
request's context cancels polling when the client disconnects.

Response:
  - 200: token.Pair
  - 401: Unknown order, failed authentication or timeout
*/
func (handler *Handler) verifyBankID(writer http.ResponseWriter, request *http.Request) {
	var input bankIDRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAutoStartToken, input.AutoStartToken).UUID(FieldAutoStartToken, input.AutoStartToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.VerifyBankID(request.Context(), input.AutoStartToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// GET /api/v1/auth/bankid/qr?autoStartToken=...
func (handler *Handler) bankIDQR(writer http.ResponseWriter, request *http.Request) {
	autoStartToken := requestutil.Query(request, FieldAutoStartToken)

	validator := &validate.Validator{}
	validator.Required(FieldAutoStartToken, autoStartToken).UUID(FieldAutoStartToken, autoStartToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	qrData, err := handler.authService.BankIDQR(request.Context(), autoStartToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldQRData: qrData})
}

// POST /api/v1/auth/bankid/cancel.
func (handler *Handler) cancelBankID(writer http.ResponseWriter, request *http.Request) {
	var input bankIDRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAutoStartToken, input.AutoStartToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.CancelBankID(request.Context(), input.AutoStartToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/auth/logout.

Description: Revokes the refresh token in the body and blocklists the bearer
token of the request until it expires.

Response:
  - 200: {message}
  - 401: Authentication required
  - 403: The refresh token belongs to another account
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.Logout(request.Context(), claims, requestutil.BearerToken(request), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "User logged out"})
}
