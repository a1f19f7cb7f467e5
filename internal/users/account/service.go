// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/pkg/uuid"
)

// ErrConflict is returned when account creation lost a race and the
// winner's binding still cannot be read back.
var ErrConflict = &apperr.AppError{
	Code:       "ACCOUNT_CONFLICT",
	Message:    "Unable to resolve account",
	HTTPStatus: http.StatusInternalServerError,
}

// # Service Layer

// Resolver maps validated identifiers to accounts and owns account lifecycle.
type Resolver struct {
	repository Repository
	ids        IDGenerator
	sessions   SessionPurger
	logger     *slog.Logger
}

// NewResolver constructs a new [Resolver] with its dependencies.
func NewResolver(repository Repository, ids IDGenerator, sessions SessionPurger, logger *slog.Logger) *Resolver {
	return &Resolver{
		repository: repository,
		ids:        ids,
		sessions:   sessions,
		logger:     logger,
	}
}

/*
ResolveOrCreate returns the account bound to (identifier, mode), creating it
together with its binding on first authentication.

Description: Existing accounts are returned untouched; hints only populate a
newly created account. When a concurrent caller wins the creation race, the
lookup is retried once before giving up with [ErrConflict].

Parameters:
  - context: context.Context
  - identifier: string (Already normalised)
  - mode: Mode
  - hints: ProfileHints

Returns:
  - *Account: The resolved account
  - error: ErrConflict or storage failures
*/
func (resolver *Resolver) ResolveOrCreate(context context.Context, identifier string, mode Mode, hints ProfileHints) (*Account, error) {

	// 1. Fast path: the binding already exists
	existing, err := resolver.repository.FindByBinding(context, identifier, mode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return nil, fmt.Errorf("account_resolver_lookup_failed: %w", err)
	}

	// 2. First authentication: create account + binding atomically
	account := &Account{
		ID:        resolver.ids.Next(),
		Handle:    uuid.New(),
		FirstName: hints.FirstName,
		LastName:  hints.LastName,
	}
	switch mode {
	case ModeEmail:
		account.Email = identifier
	case ModePhone:
		account.Phone = identifier
	}

	err = resolver.repository.CreateWithBinding(context, account, identifier, mode)
	if err == nil {
		resolver.logger.InfoContext(context, "account_created",
			slog.String("account_handle", account.Handle),
			slog.String("mode", string(mode)),
		)
		return account, nil
	}
	if !errors.Is(err, dberr.ErrDuplicate) {
		return nil, fmt.Errorf("account_resolver_create_failed: %w", err)
	}

	// 3. Lost the race: the winner's binding must now be visible
	winner, err := resolver.repository.FindByBinding(context, identifier, mode)
	if err != nil {
		resolver.logger.ErrorContext(context, "account_resolver_conflict",
			slog.String("mode", string(mode)),
			slog.Any("error", err),
		)
		return nil, ErrConflict
	}
	return winner, nil
}

/*
GetProfile returns the projection of the account behind a handle.

Parameters:
  - context: context.Context
  - handle: string

Returns:
  - Profile: Client-facing projection
  - error: apperr.NotFound or storage failures
*/
func (resolver *Resolver) GetProfile(context context.Context, handle string) (Profile, error) {
	account, err := resolver.repository.FindByHandle(context, handle)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return Profile{}, apperr.NotFound("Account")
		}
		return Profile{}, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return NewProfile(account), nil
}

// FindByHandle exposes the full account to sibling services that hold a handle.
func (resolver *Resolver) FindByHandle(context context.Context, handle string) (*Account, error) {
	return resolver.repository.FindByHandle(context, handle)
}

// FindByID exposes the full account to sibling services that hold an internal id.
func (resolver *Resolver) FindByID(context context.Context, id int64) (*Account, error) {
	return resolver.repository.FindByID(context, id)
}

/*
DeleteAccount removes the account behind a handle.

Description: Refresh-token mirrors are purged first, then the account row is
deleted and the database cascades to bindings and refresh tokens.

Parameters:
  - context: context.Context
  - handle: string

Returns:
  - error: apperr.NotFound or execution failures
*/
func (resolver *Resolver) DeleteAccount(context context.Context, handle string) error {
	account, err := resolver.repository.FindByHandle(context, handle)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Account")
		}
		return fmt.Errorf("account_service_delete_lookup_failed: %w", err)
	}

	if err := resolver.sessions.PurgeAccount(context, account.ID); err != nil {
		return fmt.Errorf("account_service_delete_purge_failed: %w", err)
	}

	if err := resolver.repository.Delete(context, account.ID); err != nil {
		return fmt.Errorf("account_service_delete_failed: %w", err)
	}

	resolver.logger.InfoContext(context, "account_deleted", slog.String("account_handle", handle))
	return nil
}
