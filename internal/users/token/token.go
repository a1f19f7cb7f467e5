// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package token issues, verifies and revokes the credentials handed out after a
successful authentication.

# Credentials

  - Access token: short-lived HS256 JWT whose subject is the account handle.
  - Refresh token: opaque UUID backed by a durable row in users.refreshtoken
    and a Redis mirror. The mirror's TTL is the token's lifetime.

Logout blocklists the presented access token until it would have expired.
*/
package token

import (
	"context"
	"time"

	"github.com/taibuivan/healthid/internal/platform/apperr"
)

var (
	// ErrInvalidToken is returned for a malformed, expired or wrongly signed access token.
	ErrInvalidToken = apperr.Unauthorized("Invalid or expired token")

	// ErrTokenRevoked is returned for an access token presented after logout.
	ErrTokenRevoked = apperr.Unauthorized("Token has been revoked")

	// ErrInvalidRefreshToken is returned when a refresh token is unknown, expired or inactive.
	ErrInvalidRefreshToken = apperr.Unauthorized("Invalid or expired refresh token")

	// ErrForbidden is returned when the caller does not own the refresh token.
	ErrForbidden = apperr.Forbidden("Refresh token does not belong to the caller")
)

// Pair is the credential set returned to the client.
type Pair struct {
	AccessToken  string `json:"jwt"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// # Repository Contracts

// RefreshRepository is the durable side of refresh tokens.
type RefreshRepository interface {
	// Create inserts an active token row.
	Create(context context.Context, id string, accountID int64) error

	// FindOwner returns the owner and active flag, or dberr.ErrNotFound.
	FindOwner(context context.Context, id string) (accountID int64, active bool, err error)

	// Deactivate flips isactive to false. Missing rows are not an error.
	Deactivate(context context.Context, id string) error

	// ListActiveIDs returns the ids of an account's active tokens.
	ListActiveIDs(context context.Context, accountID int64) ([]string, error)
}

// MirrorStore is the ephemeral side: refresh mirrors and the access-token blocklist.
type MirrorStore interface {
	SetRefresh(context context.Context, id string, accountID int64, ttl time.Duration) error

	// GetRefresh returns the mirrored owner, or ErrInvalidRefreshToken when absent.
	GetRefresh(context context.Context, id string) (int64, error)

	// ExpireRefresh resets the mirror TTL. It reports false when the mirror is gone.
	ExpireRefresh(context context.Context, id string, ttl time.Duration) (bool, error)

	DeleteRefresh(context context.Context, ids ...string) error

	Blocklist(context context.Context, digest string, ttl time.Duration) error
	IsBlocklisted(context context.Context, digest string) (bool, error)
}
