// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for accounts.

# Schema Table Mapping
  - users.account: Master identity and profile data.
  - users.authbinding: (identifier, mode) links, unique per pair.
*/
package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/healthid/internal/platform/database/schema"
	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/internal/platform/postgres"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool postgres.DB
}

// NewRepository creates a new Postgres implementation for account storage.
func NewRepository(pool postgres.DB) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// selectAccountColumns lists the account columns in scan order, prefixed with alias.
func selectAccountColumns(alias string) string {
	columns := schema.UserAccount
	return fmt.Sprintf(
		"%[1]s.%[2]s, %[1]s.%[3]s, COALESCE(%[1]s.%[4]s, ''), COALESCE(%[1]s.%[5]s, ''), COALESCE(%[1]s.%[6]s, ''), COALESCE(%[1]s.%[7]s, ''), %[1]s.%[8]s, %[1]s.%[9]s",
		alias,
		columns.ID, columns.Handle, columns.FirstName, columns.LastName,
		columns.Email, columns.Phone, columns.CreatedAt, columns.UpdatedAt,
	)
}

// scanAccount hydrates an [Account] from a row produced by [selectAccountColumns].
func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Handle,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.Phone,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

/*
FindByBinding joins users.authbinding to users.account on the unique pair.

Parameters:
  - context: context.Context
  - identifier: string
  - mode: Mode

Returns:
  - *Account: Owning account
  - error: dberr.ErrNotFound or database execution failure
*/
func (repository *PostgresRepository) FindByBinding(context context.Context, identifier string, mode Mode) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s a
		JOIN %s b ON b.%s = a.%s
		WHERE b.%s = $1 AND b.%s = $2`,
		selectAccountColumns("a"),
		schema.UserAccount.Table,
		schema.UserAuthBinding.Table, schema.UserAuthBinding.AccountID, schema.UserAccount.ID,
		schema.UserAuthBinding.Identifier, schema.UserAuthBinding.Mode,
	)

	account, err := scanAccount(repository.pool.QueryRow(context, query, identifier, string(mode)))
	if err != nil {
		return nil, dberr.Wrap(err, "find account binding")
	}
	return account, nil
}

/*
CreateWithBinding inserts users.account and users.authbinding atomically.

Description: A concurrent creator for the same pair makes the binding insert
fail with a unique violation; the whole transaction is rolled back so no
orphaned account remains.

Parameters:
  - context: context.Context
  - account: *Account
  - identifier: string
  - mode: Mode

Returns:
  - error: dberr.ErrDuplicate on a lost race, other failures wrapped
*/
func (repository *PostgresRepository) CreateWithBinding(context context.Context, account *Account, identifier string, mode Mode) error {
	// 1. Account row
	accountQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		RETURNING %s, %s`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Handle, schema.UserAccount.FirstName,
		schema.UserAccount.LastName, schema.UserAccount.Email, schema.UserAccount.Phone,
		schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)

	// 2. Binding row (unique on identifier, mode)
	bindingQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)`,
		schema.UserAuthBinding.Table,
		schema.UserAuthBinding.AccountID, schema.UserAuthBinding.Identifier, schema.UserAuthBinding.Mode,
	)

	return postgres.WithTx(context, repository.pool, func(transaction pgx.Tx) error {
		err := transaction.QueryRow(context, accountQuery,
			account.ID,
			account.Handle,
			account.FirstName,
			account.LastName,
			account.Email,
			account.Phone,
		).Scan(&account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return dberr.Wrap(err, "create account")
		}

		if _, err := transaction.Exec(context, bindingQuery, account.ID, identifier, string(mode)); err != nil {
			return dberr.Wrap(err, "create account binding")
		}
		return nil
	})
}

/*
FindByHandle retrieves an account by its public handle.

Parameters:
  - context: context.Context
  - handle: string

Returns:
  - *Account: Loaded account
  - error: dberr.ErrNotFound or database execution failure
*/
func (repository *PostgresRepository) FindByHandle(context context.Context, handle string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s a WHERE a.%s = $1`,
		selectAccountColumns("a"), schema.UserAccount.Table, schema.UserAccount.Handle,
	)

	account, err := scanAccount(repository.pool.QueryRow(context, query, handle))
	if err != nil {
		return nil, dberr.Wrap(err, "find account")
	}
	return account, nil
}

// FindByID retrieves an account by its internal id.
func (repository *PostgresRepository) FindByID(context context.Context, id int64) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s a WHERE a.%s = $1`,
		selectAccountColumns("a"), schema.UserAccount.Table, schema.UserAccount.ID,
	)

	account, err := scanAccount(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find account")
	}
	return account, nil
}

// Delete removes an account; users.authbinding and users.refreshtoken cascade.
func (repository *PostgresRepository) Delete(context context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserAccount.Table, schema.UserAccount.ID)

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete account")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
