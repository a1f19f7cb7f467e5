// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/pkg/uuid"
)

// Config sets credential lifetimes.
//
// Strict makes refresh validation consult the durable row as well as the mirror.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Strict     bool
}

// Manager owns the access and refresh token lifecycle.
type Manager struct {
	signer  *sec.TokenService
	refresh RefreshRepository
	mirror  MirrorStore
	config  Config
	logger  *slog.Logger
}

// NewManager constructs a new [Manager].
func NewManager(signer *sec.TokenService, refresh RefreshRepository, mirror MirrorStore, config Config, logger *slog.Logger) *Manager {
	return &Manager{
		signer:  signer,
		refresh: refresh,
		mirror:  mirror,
		config:  config,
		logger:  logger,
	}
}

// # Access Tokens

// MintAccessToken signs an access token for the account's handle.
func (manager *Manager) MintAccessToken(account *account.Account) (string, error) {
	accessToken, err := manager.signer.GenerateAccessToken(account.Handle, manager.config.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("token_manager_mint_failed: %w", err)
	}
	return accessToken, nil
}

/*
VerifyAccessToken checks signature, issuer and expiry, then the blocklist.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - *sec.AuthClaims: Verified claims
  - error: ErrInvalidToken, ErrTokenRevoked or blocklist lookup failures
*/
func (manager *Manager) VerifyAccessToken(context context.Context, accessToken string) (*sec.AuthClaims, error) {
	claims, err := manager.signer.VerifyToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	blocked, err := manager.IsBlocklisted(context, accessToken)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// BlocklistAccessToken rejects accessToken for the rest of its lifetime.
func (manager *Manager) BlocklistAccessToken(context context.Context, accessToken string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return manager.mirror.Blocklist(context, sec.HashToken(accessToken), remaining)
}

// IsBlocklisted reports whether accessToken was presented at logout.
func (manager *Manager) IsBlocklisted(context context.Context, accessToken string) (bool, error) {
	return manager.mirror.IsBlocklisted(context, sec.HashToken(accessToken))
}

// # Refresh Tokens

/*
IssueRefreshToken creates a refresh token for an account.

Description: The durable row is written first so every mirror has an audit
record behind it.

Parameters:
  - context: context.Context
  - accountID: int64

Returns:
  - string: Refresh token id
  - error: Storage failures
*/
func (manager *Manager) IssueRefreshToken(context context.Context, accountID int64) (string, error) {
	id := uuid.New()

	if err := manager.refresh.Create(context, id, accountID); err != nil {
		return "", fmt.Errorf("token_manager_issue_refresh_failed: %w", err)
	}
	if err := manager.mirror.SetRefresh(context, id, accountID, manager.config.RefreshTTL); err != nil {
		return "", fmt.Errorf("token_manager_issue_refresh_failed: %w", err)
	}
	return id, nil
}

// IssuePair mints an access token and a new refresh token for account.
func (manager *Manager) IssuePair(context context.Context, account *account.Account) (*Pair, error) {
	accessToken, err := manager.MintAccessToken(account)
	if err != nil {
		return nil, err
	}

	refreshToken, err := manager.IssueRefreshToken(context, account.ID)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(manager.config.AccessTTL / time.Second),
	}, nil
}

/*
ValidateRefreshToken returns the owner of a usable refresh token.

Description: A token is usable iff its mirror exists. When the mirror is gone
the durable row is deactivated so both stores agree. In strict mode the
durable row must also be active and owned by the mirrored account.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - int64: Owner account id
  - error: ErrInvalidRefreshToken or storage failures
*/
func (manager *Manager) ValidateRefreshToken(context context.Context, id string) (int64, error) {
	if !uuid.Valid(id) {
		return 0, ErrInvalidRefreshToken
	}

	accountID, err := manager.mirror.GetRefresh(context, id)
	if err != nil {
		if !errors.Is(err, ErrInvalidRefreshToken) {
			return 0, fmt.Errorf("token_manager_validate_failed: %w", err)
		}
		if deactivateErr := manager.refresh.Deactivate(context, id); deactivateErr != nil {
			manager.logger.ErrorContext(context, "refresh_token_deactivate_failed",
				slog.String("token_id", id),
				slog.Any("error", deactivateErr),
			)
		}
		return 0, ErrInvalidRefreshToken
	}

	if !manager.config.Strict {
		return accountID, nil
	}

	owner, active, err := manager.refresh.FindOwner(context, id)
	if err != nil && !errors.Is(err, dberr.ErrNotFound) {
		return 0, fmt.Errorf("token_manager_validate_failed: %w", err)
	}
	if err != nil || !active || owner != accountID {
		if deleteErr := manager.mirror.DeleteRefresh(context, id); deleteErr != nil {
			manager.logger.WarnContext(context, "refresh_mirror_delete_failed",
				slog.String("token_id", id),
				slog.Any("error", deleteErr),
			)
		}
		return 0, ErrInvalidRefreshToken
	}
	return accountID, nil
}

// Touch restarts the lifetime of a refresh token that was just used.
func (manager *Manager) Touch(context context.Context, id string) error {
	alive, err := manager.mirror.ExpireRefresh(context, id, manager.config.RefreshTTL)
	if err != nil {
		return fmt.Errorf("token_manager_touch_failed: %w", err)
	}
	if !alive {
		return ErrInvalidRefreshToken
	}
	return nil
}

/*
Revoke invalidates a refresh token on behalf of its owner.

Description: Ownership is checked against the durable row before anything is
removed. A token that does not exist is reported like one owned by someone
else.

Parameters:
  - context: context.Context
  - id: string
  - callerAccountID: int64

Returns:
  - error: ErrForbidden or storage failures
*/
func (manager *Manager) Revoke(context context.Context, id string, callerAccountID int64) error {
	if !uuid.Valid(id) {
		return ErrForbidden
	}

	owner, _, err := manager.refresh.FindOwner(context, id)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("token_manager_revoke_failed: %w", err)
	}
	if owner != callerAccountID {
		manager.logger.WarnContext(context, "refresh_token_revoke_forbidden",
			slog.String("token_id", id),
			slog.Int64("caller_account_id", callerAccountID),
		)
		return ErrForbidden
	}

	if err := manager.mirror.DeleteRefresh(context, id); err != nil {
		return fmt.Errorf("token_manager_revoke_failed: %w", err)
	}
	if err := manager.refresh.Deactivate(context, id); err != nil {
		return fmt.Errorf("token_manager_revoke_failed: %w", err)
	}

	manager.logger.InfoContext(context, "refresh_token_revoked", slog.String("token_id", id))
	return nil
}

// PurgeAccount drops the mirrors of every active refresh token of an account.
// The durable rows go with the account through the foreign key cascade.
func (manager *Manager) PurgeAccount(context context.Context, accountID int64) error {
	ids, err := manager.refresh.ListActiveIDs(context, accountID)
	if err != nil {
		return fmt.Errorf("token_manager_purge_failed: %w", err)
	}
	if err := manager.mirror.DeleteRefresh(context, ids...); err != nil {
		return fmt.Errorf("token_manager_purge_failed: %w", err)
	}
	return nil
}
