// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr maps pgx failures onto the two outcomes repositories report
// to their services (missing row, lost unique race) and hides the rest.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/healthid/internal/platform/apperr"
)

var (
	// ErrNotFound is returned for pgx.ErrNoRows and for deletes that matched nothing.
	ErrNotFound = apperr.NotFound("Resource")

	// ErrDuplicate is returned when an insert loses a unique-constraint race,
	// e.g. two first logins of the same identifier creating a binding.
	ErrDuplicate = apperr.Conflict("Resource already exists")
)

// Wrap classifies err. action names the operation in the 500 message
// ("create account binding") while the pgx error stays as the logged cause.
func Wrap(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case IsUniqueViolation(err):
		return ErrDuplicate
	}

	internal := apperr.Internal(err)
	if action != "" {
		internal.Message = "An unexpected error occurred while trying to " + action
	}
	return internal
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}
