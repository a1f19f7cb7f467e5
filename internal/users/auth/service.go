// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth orchestrates the three login modes into one token issuance path.

Architecture:

  - Initiation: a code is sent (e-mail or phone) or a BankID order is started.
    The returned correlation handle is bound to its mode.
  - Completion: the mode bound to the handle decides which validator runs.
  - Outcome: the validated identifier is resolved to an account and a token
    pair is issued. The mode binding is released once the flow succeeds.

The service never holds in-process locks. Single-use and single-account
guarantees come from the stores behind its collaborators.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/platform/validate"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/internal/users/bankid"
	"github.com/taibuivan/healthid/internal/users/otp"
	"github.com/taibuivan/healthid/internal/users/token"
)

// ErrUnsupportedMode is returned when a code is requested for a mode without codes.
var ErrUnsupportedMode = apperr.ValidationError("Unsupported authentication mode")

// # Collaborator Contracts

// CodeEngine issues and validates locally generated codes.
type CodeEngine interface {
	Issue(context context.Context, identifier string, mode account.Mode) (*otp.Code, error)
	Validate(context context.Context, handle, value string) (*otp.Code, error)
}

// CodeDelegate forwards code delivery and checking to an external provider.
type CodeDelegate interface {
	Send(context context.Context, to string) error
	Validate(context context.Context, to, code string) (*otp.Code, error)
}

// Federated runs the BankID start and poll protocol.
type Federated interface {
	Start(context context.Context, endUserIP string) (*bankid.Order, error)
	ResolveOrderRef(context context.Context, autoStartToken string) (string, error)
	Poll(context context.Context, orderRef string) (*bankid.CompletionData, error)
	QR(context context.Context, autoStartToken string) (string, error)
	Cancel(context context.Context, autoStartToken string) error
	Finish(context context.Context, autoStartToken string) error
}

// ModeRegistry binds correlation handles to modes.
type ModeRegistry interface {
	Bind(context context.Context, handle string, mode account.Mode) error
	Resolve(context context.Context, handle string) (account.Mode, error)
	Release(context context.Context, handle string) error
}

// IdentityResolver maps identifiers to accounts.
type IdentityResolver interface {
	ResolveOrCreate(context context.Context, identifier string, mode account.Mode, hints account.ProfileHints) (*account.Account, error)
	FindByID(context context.Context, id int64) (*account.Account, error)
	FindByHandle(context context.Context, handle string) (*account.Account, error)
}

// TokenIssuer owns the token lifecycle.
type TokenIssuer interface {
	IssuePair(context context.Context, account *account.Account) (*token.Pair, error)
	MintAccessToken(account *account.Account) (string, error)
	ValidateRefreshToken(context context.Context, id string) (int64, error)
	Touch(context context.Context, id string) error
	Revoke(context context.Context, id string, callerAccountID int64) error
	BlocklistAccessToken(context context.Context, accessToken string, remaining time.Duration) error
}

// # Service

// Service implements the authentication use cases.
type Service struct {
	codes     CodeEngine
	delegate  CodeDelegate
	federated Federated
	modes     ModeRegistry
	accounts  IdentityResolver
	tokens    TokenIssuer
	logger    *slog.Logger
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Codes     CodeEngine
	Delegate  CodeDelegate
	Federated Federated
	Modes     ModeRegistry
	Accounts  IdentityResolver
	Tokens    TokenIssuer
	Logger    *slog.Logger
}

// NewService constructs a new [Service].
func NewService(deps Dependencies) *Service {
	return &Service{
		codes:     deps.Codes,
		delegate:  deps.Delegate,
		federated: deps.Federated,
		modes:     deps.Modes,
		accounts:  deps.Accounts,
		tokens:    deps.Tokens,
		logger:    deps.Logger,
	}
}

// # Code Flows

/*
RequestCode sends a one-time code to an e-mail address or phone number.

Description: E-mail codes are issued locally and correlated by the code id.
Phone codes are owned by the delegated provider and correlated by the number
itself. Either way the handle is bound to its mode before it is returned.

Parameters:
  - context: context.Context
  - mode: account.Mode (EMAIL or PHONE)
  - identifier: string (Already normalised)

Returns:
  - string: Correlation handle to submit with the code
  - error: ErrUnsupportedMode, delivery or storage failures
*/
func (service *Service) RequestCode(context context.Context, mode account.Mode, identifier string) (string, error) {
	var handle string

	switch mode {
	case account.ModeEmail:
		code, err := service.codes.Issue(context, identifier, mode)
		if err != nil {
			return "", err
		}
		handle = code.ID

	case account.ModePhone:
		if err := service.delegate.Send(context, identifier); err != nil {
			return "", err
		}
		handle = identifier

	default:
		return "", ErrUnsupportedMode
	}

	if err := service.modes.Bind(context, handle, mode); err != nil {
		return "", fmt.Errorf("auth_service_bind_mode_failed: %w", err)
	}
	return handle, nil
}

/*
VerifyCode completes a code flow and issues a token pair.

Parameters:
  - context: context.Context
  - handle: string (Returned by RequestCode)
  - value: string (Code entered by the user)

Returns:
  - *token.Pair: Fresh credentials
  - error: otp.ErrInvalidOrExpiredCode, authmode.ErrNotFound or failures downstream
*/
func (service *Service) VerifyCode(context context.Context, handle, value string) (*token.Pair, error) {
	mode, err := service.modes.Resolve(context, handle)
	if err != nil {
		return nil, err
	}

	var code *otp.Code
	switch mode {
	case account.ModeEmail:
		code, err = service.codes.Validate(context, handle, value)
	case account.ModePhone:
		code, err = service.delegate.Validate(context, handle, value)
	default:
		// A BankID token submitted as a code handle
		return nil, otp.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}

	owner, err := service.accounts.ResolveOrCreate(context, code.Identifier, mode, account.ProfileHints{})
	if err != nil {
		return nil, err
	}

	pair, err := service.tokens.IssuePair(context, owner)
	if err != nil {
		return nil, err
	}

	service.release(context, handle)
	service.logger.InfoContext(context, "auth_login_succeeded",
		slog.String("account_handle", owner.Handle),
		slog.String("mode", string(mode)),
	)
	return pair, nil
}

// # BankID Flow

// StartBankID starts an order and returns the token the client app opens BankID with.
func (service *Service) StartBankID(context context.Context, endUserIP string) (string, error) {
	order, err := service.federated.Start(context, endUserIP)
	if err != nil {
		return "", err
	}

	if err := service.modes.Bind(context, order.AutoStartToken, account.ModeBankID); err != nil {
		return "", fmt.Errorf("auth_service_bind_mode_failed: %w", err)
	}
	return order.AutoStartToken, nil
}

/*
VerifyBankID waits for the order behind autoStartToken and issues a token pair.

Description: The poll is bounded by the BankID service's own deadline and by
the request context, so an abandoned request stops polling.

Parameters:
  - context: context.Context (Request scoped)
  - autoStartToken: string

Returns:
  - *token.Pair: Fresh credentials
  - error: bankid.ErrOrderNotFound, bankid.ErrAuthenticationFailed, bankid.ErrPollTimeout
*/
func (service *Service) VerifyBankID(context context.Context, autoStartToken string) (*token.Pair, error) {
	mode, err := service.modes.Resolve(context, autoStartToken)
	if err != nil || mode != account.ModeBankID {
		return nil, bankid.ErrOrderNotFound
	}

	orderRef, err := service.federated.ResolveOrderRef(context, autoStartToken)
	if err != nil {
		return nil, err
	}

	completion, err := service.federated.Poll(context, orderRef)
	if err != nil {
		return nil, err
	}

	personalNumber := validate.NormalizePersonalNumber(completion.User.PersonalNumber)
	if err := (&validate.Validator{}).PersonalNumber("personalNumber", personalNumber).Err(); err != nil {
		service.logger.WarnContext(context, "bankid_identity_malformed", slog.Any("error", err))
		return nil, bankid.ErrAuthenticationFailed
	}
	owner, err := service.accounts.ResolveOrCreate(context, personalNumber, account.ModeBankID, account.ProfileHints{
		FirstName: completion.User.GivenName,
		LastName:  completion.User.Surname,
	})
	if err != nil {
		return nil, err
	}

	pair, err := service.tokens.IssuePair(context, owner)
	if err != nil {
		return nil, err
	}

	if err := service.federated.Finish(context, autoStartToken); err != nil {
		service.logger.WarnContext(context, "bankid_order_finish_failed", slog.Any("error", err))
	}
	service.release(context, autoStartToken)
	service.logger.InfoContext(context, "auth_login_succeeded",
		slog.String("account_handle", owner.Handle),
		slog.String("mode", string(account.ModeBankID)),
	)
	return pair, nil
}

// BankIDQR returns the current animated QR payload for an order.
func (service *Service) BankIDQR(context context.Context, autoStartToken string) (string, error) {
	return service.federated.QR(context, autoStartToken)
}

// CancelBankID aborts an order and forgets its handle.
func (service *Service) CancelBankID(context context.Context, autoStartToken string) error {
	if err := service.federated.Cancel(context, autoStartToken); err != nil {
		return err
	}
	service.release(context, autoStartToken)
	return nil
}

// # Session Flows

/*
Refresh mints a new access token from a refresh token.

Description: The refresh token keeps its id; only its lifetime restarts.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - string: New access token
  - error: token.ErrInvalidRefreshToken or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (string, error) {
	accountID, err := service.tokens.ValidateRefreshToken(context, refreshToken)
	if err != nil {
		return "", err
	}

	owner, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return "", token.ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("auth_service_refresh_failed: %w", err)
	}

	accessToken, err := service.tokens.MintAccessToken(owner)
	if err != nil {
		return "", err
	}

	if err := service.tokens.Touch(context, refreshToken); err != nil {
		return "", err
	}
	return accessToken, nil
}

/*
Logout revokes the caller's refresh token and blocklists the access token it
authenticated with.

Parameters:
  - context: context.Context
  - claims: *sec.AuthClaims (Caller)
  - accessToken: string (Raw bearer token)
  - refreshToken: string

Returns:
  - error: token.ErrForbidden or storage failures
*/
func (service *Service) Logout(context context.Context, claims *sec.AuthClaims, accessToken, refreshToken string) error {
	caller, err := service.accounts.FindByHandle(context, claims.Handle())
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.Unauthorized("Authentication required")
		}
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	if err := service.tokens.Revoke(context, refreshToken, caller.ID); err != nil {
		return err
	}

	if err := service.tokens.BlocklistAccessToken(context, accessToken, claims.Remaining(time.Now())); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.logger.InfoContext(context, "auth_logout", slog.String("account_handle", caller.Handle))
	return nil
}

// release drops a mode binding after its flow ended. A failed release is
// only logged since the binding expires with its TTL.
func (service *Service) release(context context.Context, handle string) {
	if err := service.modes.Release(context, handle); err != nil {
		service.logger.WarnContext(context, "auth_mode_release_failed", slog.Any("error", err))
	}
}
