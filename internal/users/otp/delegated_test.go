// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"

	"github.com/taibuivan/healthid/internal/users/account"
)

// fakeVerifyAPI answers like Twilio Verify for a single pending code.
type fakeVerifyAPI struct {
	pending   map[string]string
	createErr error
	checkErr  error
}

func (api *fakeVerifyAPI) CreateVerification(_ string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error) {
	if api.createErr != nil {
		return nil, api.createErr
	}
	status := "pending"
	api.pending[*params.To] = "123456"
	return &verify.VerifyV2Verification{To: params.To, Status: &status}, nil
}

func (api *fakeVerifyAPI) CreateVerificationCheck(_ string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error) {
	if api.checkErr != nil {
		return nil, api.checkErr
	}
	expected, ok := api.pending[*params.To]
	if !ok {
		return nil, &twilioclient.TwilioRestError{Status: 404, Code: 20404, Message: "not found"}
	}
	status := "pending"
	if expected == *params.Code {
		status = "approved"
		delete(api.pending, *params.To)
	}
	return &verify.VerifyV2VerificationCheck{Status: &status}, nil
}

func newTestDelegated(api verifyAPI, production bool) *Delegated {
	provider := &TwilioProvider{api: api, serviceSid: "VA-test"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDelegated(provider, []string{"+46700000000"}, production, logger)
}

/*
TestDelegated_ApproveDeny verifies provider verdicts map onto the code taxonomy.
*/
func TestDelegated_ApproveDeny(t *testing.T) {
	api := &fakeVerifyAPI{pending: map[string]string{}}
	delegated := newTestDelegated(api, true)
	ctx := context.Background()

	require.NoError(t, delegated.Send(ctx, "+46701234567"))

	_, err := delegated.Validate(ctx, "+46701234567", "000000")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	code, err := delegated.Validate(ctx, "+46701234567", "123456")
	require.NoError(t, err)
	assert.True(t, code.Validated)
	assert.Equal(t, "+46701234567", code.Identifier)
	assert.Equal(t, account.ModePhone, code.Mode)

	// Approved verifications are gone on the provider side
	_, err = delegated.Validate(ctx, "+46701234567", "123456")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

/*
TestDelegated_Bypass verifies the allow-list only applies outside production.
*/
func TestDelegated_Bypass(t *testing.T) {
	ctx := context.Background()

	development := newTestDelegated(&fakeVerifyAPI{pending: map[string]string{}}, false)
	require.NoError(t, development.Send(ctx, "+46700000000"))
	code, err := development.Validate(ctx, "+46700000000", "any")
	require.NoError(t, err)
	assert.True(t, code.Validated)

	production := newTestDelegated(&fakeVerifyAPI{pending: map[string]string{}}, true)
	_, err = production.Validate(ctx, "+46700000000", "any")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

/*
TestDelegated_ProviderErrors separates client refusals from provider outages.
*/
func TestDelegated_ProviderErrors(t *testing.T) {
	ctx := context.Background()

	refused := newTestDelegated(&fakeVerifyAPI{
		pending:   map[string]string{},
		createErr: &twilioclient.TwilioRestError{Status: 400, Code: 60200, Message: "Invalid parameter"},
	}, true)
	assert.ErrorIs(t, refused.Send(ctx, "+46701234567"), ErrUndeliverable)

	outage := newTestDelegated(&fakeVerifyAPI{
		pending:  map[string]string{},
		checkErr: &twilioclient.TwilioRestError{Status: 503, Message: "unavailable"},
	}, true)
	_, err := outage.Validate(ctx, "+46701234567", "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidOrExpiredCode)

	transport := newTestDelegated(&fakeVerifyAPI{
		pending:   map[string]string{},
		createErr: errors.New("dial tcp: timeout"),
	}, true)
	err = transport.Send(ctx, "+46701234567")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUndeliverable)
}

/*
TestRenderCode verifies the e-mail body carries the code and its lifetime.
*/
func TestRenderCode(t *testing.T) {
	body, err := renderCode("482913", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.Contains(body, "482913"))
	assert.Contains(t, body, "5 minutes")
}
