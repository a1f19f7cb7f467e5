// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package otp issues and validates single-use numeric codes.

Two channels exist. E-mail codes are generated, stored and checked locally.
Phone codes are generated, delivered and checked by a delegated provider; this
package only forwards the verification request and trusts the verdict.

# Single use

A local code is consumed by two writes that must agree: the durable audit
record flips validated=false to true, and the ephemeral entry is deleted with
a compare-and-delete script. Both happen inside one database transaction that
row-locks the audit record, so exactly one submission wins.
*/
package otp

import (
	"context"
	"time"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/users/account"
)

// ErrInvalidOrExpiredCode covers wrong, reused, expired and unknown codes alike.
var ErrInvalidOrExpiredCode = apperr.Unauthorized("Invalid or expired code")

// Code is the audit record of one issued code.
//
// For delegated codes the value is synthesized after the provider approves it
// and is never persisted.
type Code struct {
	ID         string
	Identifier string
	Mode       account.Mode
	Value      string
	Validated  bool
	CreatedAt  time.Time
}

// # Repository Contracts

// CodeRepository defines the durable audit trail for locally issued codes.
type CodeRepository interface {
	/*
		Create appends a new, not yet validated, audit record.

		Parameters:
		  - context: context.Context
		  - code: *Code

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, code *Code) error

	/*
		MarkValidated flips the validated flag of an unvalidated record and runs
		consume while the record is locked.

		Description: The flag change is committed only if consume returns nil.
		A record that is unknown or already validated yields ErrInvalidOrExpiredCode
		without calling consume.

		Parameters:
		  - context: context.Context
		  - id: string (Correlation handle)
		  - consume: func (Ephemeral compare-and-delete)

		Returns:
		  - *Code: The validated record
		  - error: ErrInvalidOrExpiredCode, consume's error, or commit failures
	*/
	MarkValidated(context context.Context, id string, consume func(context.Context) error) (*Code, error)
}

// CodeCache defines the ephemeral, TTL-bound copy of a live code.
type CodeCache interface {
	/*
		Store saves the code under its correlation handle.

		Parameters:
		  - context: context.Context
		  - handle: string
		  - value: string
		  - ttl: time.Duration

		Returns:
		  - error: Connectivity failures
	*/
	Store(context context.Context, handle, value string, ttl time.Duration) error

	/*
		Consume deletes the entry only if it holds value.

		Parameters:
		  - context: context.Context
		  - handle: string
		  - value: string

		Returns:
		  - time.Duration: TTL the entry had left when consumed
		  - error: ErrInvalidOrExpiredCode on mismatch or absence
	*/
	Consume(context context.Context, handle, value string) (time.Duration, error)

	// Restore puts a consumed entry back, unless one already exists.
	Restore(context context.Context, handle, value string, ttl time.Duration) error
}

// Sender delivers a locally issued code to its owner.
type Sender interface {
	SendCode(context context.Context, to, code string, ttl time.Duration) error
}
