// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account resolves authenticated identifiers to durable accounts.

Every successful authentication, whatever its mode, ends with an (identifier,
mode) pair. This package maps that pair to exactly one account, creating the
account and its binding on first sight.

# Architecture

  - Entities: Account, Profile (output projection), ProfileHints.
  - Resolver: The only path that creates accounts. It never updates profiles.
  - Concurrency: Uniqueness of (identifier, mode) is enforced by the database
    constraint, the losing writer re-reads the winner's row.
*/
package account

import (
	"context"
	"time"
)

// # Authentication Modes

// Mode identifies the channel that proved control of an identifier.
type Mode string

const (
	// ModeEmail is a locally issued numeric code delivered by e-mail.
	ModeEmail Mode = "EMAIL"
	// ModePhone is a code issued and verified by the delegated SMS provider.
	ModePhone Mode = "PHONE"
	// ModeBankID is federated authentication through BankID.
	ModeBankID Mode = "BANKID"
)

// Valid reports whether the mode is one of the known channels.
func (mode Mode) Valid() bool {
	switch mode {
	case ModeEmail, ModePhone, ModeBankID:
		return true
	}
	return false
}

// # Domain Entities

// Account is the durable identity record.
//
// ID is internal and never leaves the server. Handle is the opaque public
// identity carried as the access token subject.
type Account struct {
	ID        int64
	Handle    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileHints carries optional profile fields known at creation time,
// typically names from a federated identity claim.
type ProfileHints struct {
	FirstName string
	LastName  string
}

// Profile is the client-facing projection of an [Account].
type Profile struct {
	Handle    string    `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProfile projects the exposable fields of an account.
func NewProfile(account *Account) Profile {
	return Profile{
		Handle:    account.Handle,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Email:     account.Email,
		Phone:     account.Phone,
		CreatedAt: account.CreatedAt,
	}
}

// # Repository Contracts

// Repository defines the persistence contract for accounts and their bindings.
type Repository interface {
	/*
		FindByBinding retrieves the account bound to an (identifier, mode) pair.

		Parameters:
		  - context: context.Context
		  - identifier: string (Normalised e-mail, phone or personal number)
		  - mode: Mode

		Returns:
		  - *Account: The owning account
		  - error: dberr.ErrNotFound when no binding exists
	*/
	FindByBinding(context context.Context, identifier string, mode Mode) (*Account, error)

	/*
		CreateWithBinding inserts the account and its binding in one transaction.

		Parameters:
		  - context: context.Context
		  - account: *Account (ID and Handle pre-generated)
		  - identifier: string
		  - mode: Mode

		Returns:
		  - error: dberr.ErrDuplicate when the binding already exists
	*/
	CreateWithBinding(context context.Context, account *Account, identifier string, mode Mode) error

	/*
		FindByHandle retrieves an account by its public handle.

		Parameters:
		  - context: context.Context
		  - handle: string (UUID)

		Returns:
		  - *Account: Loaded account entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByHandle(context context.Context, handle string) (*Account, error)

	/*
		FindByID retrieves an account by its internal id.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Account: Loaded account entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByID(context context.Context, id int64) (*Account, error)

	/*
		Delete removes the account. Bindings and refresh tokens cascade.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: dberr.ErrNotFound if the account does not exist
	*/
	Delete(context context.Context, id int64) error
}

// IDGenerator issues internal account ids.
type IDGenerator interface {
	Next() int64
}

// SessionPurger drops the ephemeral refresh-token mirrors of an account
// before its durable rows disappear with the account.
type SessionPurger interface {
	PurgeAccount(context context.Context, accountID int64) error
}
