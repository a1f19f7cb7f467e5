// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/users/account"
)

var (
	// ErrUndeliverable is returned when the provider refuses the destination.
	ErrUndeliverable = apperr.Unprocessable("Unable to send a code to this number")

	// ErrProviderUnavailable is returned when the SMS provider fails to answer.
	ErrProviderUnavailable = apperr.BadGateway("SMS verification is temporarily unavailable")
)

// # Provider Contract

// VerificationProvider owns code generation, delivery and checking for a channel.
type VerificationProvider interface {
	// StartVerification asks the provider to send a code to the destination.
	StartVerification(context context.Context, to string) error

	// CheckVerification returns true when the provider approves the code.
	CheckVerification(context context.Context, to, code string) (bool, error)
}

// # Delegated Validator

// Delegated forwards phone verification to a [VerificationProvider].
type Delegated struct {
	provider   VerificationProvider
	allowList  map[string]struct{}
	production bool
	logger     *slog.Logger
}

// NewDelegated builds a Delegated validator.
//
// allowList identifiers skip the provider entirely, but only when production
// is false.
func NewDelegated(provider VerificationProvider, allowList []string, production bool, logger *slog.Logger) *Delegated {
	allowed := make(map[string]struct{}, len(allowList))
	for _, identifier := range allowList {
		allowed[identifier] = struct{}{}
	}
	return &Delegated{
		provider:   provider,
		allowList:  allowed,
		production: production,
		logger:     logger,
	}
}

func (delegated *Delegated) bypassed(to string) bool {
	if delegated.production {
		return false
	}
	_, ok := delegated.allowList[to]
	return ok
}

/*
Send asks the provider to deliver a code to a phone number.

Parameters:
  - context: context.Context
  - to: string (E.164 phone number)

Returns:
  - error: ErrUndeliverable or provider failures
*/
func (delegated *Delegated) Send(context context.Context, to string) error {
	if delegated.bypassed(to) {
		delegated.logger.WarnContext(context, "otp_delegated_send_bypassed", slog.String("to", to))
		return nil
	}

	if err := delegated.provider.StartVerification(context, to); err != nil {
		return fmt.Errorf("otp_delegated_send_failed: %w", err)
	}
	return nil
}

/*
Validate asks the provider for a verdict on code.

Description: An approved check is turned into a transient, already validated
[Code] so callers handle both channels alike. Nothing is persisted.

Parameters:
  - context: context.Context
  - to: string (Phone number, also the correlation handle)
  - code: string

Returns:
  - *Code: Synthesized validation result
  - error: ErrInvalidOrExpiredCode or provider failures
*/
func (delegated *Delegated) Validate(context context.Context, to, code string) (*Code, error) {
	if delegated.bypassed(to) {
		delegated.logger.WarnContext(context, "otp_delegated_check_bypassed", slog.String("to", to))
		return synthesize(to, code), nil
	}

	approved, err := delegated.provider.CheckVerification(context, to, code)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, fmt.Errorf("otp_delegated_check_failed: %w", err)
	}
	if !approved {
		return nil, ErrInvalidOrExpiredCode
	}
	return synthesize(to, code), nil
}

func synthesize(to, code string) *Code {
	return &Code{
		ID:         to,
		Identifier: to,
		Mode:       account.ModePhone,
		Value:      code,
		Validated:  true,
		CreatedAt:  time.Now(),
	}
}

// # Twilio Verify

// verifyAPI is the subset of the Twilio Verify v2 service used here.
type verifyAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// TwilioProvider implements [VerificationProvider] on Twilio Verify over SMS.
type TwilioProvider struct {
	api        verifyAPI
	serviceSid string
}

// NewTwilioProvider builds the process-wide Twilio client from credentials.
func NewTwilioProvider(accountSid, authToken, serviceSid string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &TwilioProvider{api: client.VerifyV2, serviceSid: serviceSid}
}

// StartVerification creates an SMS verification for to.
func (provider *TwilioProvider) StartVerification(_ context.Context, to string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(to)
	params.SetChannel("sms")

	if _, err := provider.api.CreateVerification(provider.serviceSid, params); err != nil {
		if isClientError(err) {
			return ErrUndeliverable
		}
		return fmt.Errorf("twilio_create_verification_failed: %w: %w", ErrProviderUnavailable, err)
	}
	return nil
}

// CheckVerification checks code against the pending verification for to.
// Twilio answers 404 once a verification is approved, expired or unknown.
func (provider *TwilioProvider) CheckVerification(_ context.Context, to, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(to)
	params.SetCode(code)

	check, err := provider.api.CreateVerificationCheck(provider.serviceSid, params)
	if err != nil {
		if isClientError(err) {
			return false, ErrInvalidOrExpiredCode
		}
		return false, fmt.Errorf("twilio_check_verification_failed: %w: %w", ErrProviderUnavailable, err)
	}

	return check.Status != nil && *check.Status == "approved", nil
}

func isClientError(err error) bool {
	var restError *twilioclient.TwilioRestError
	if !errors.As(err, &restError) {
		return false
	}
	return restError.Status >= http.StatusBadRequest && restError.Status < http.StatusInternalServerError
}
