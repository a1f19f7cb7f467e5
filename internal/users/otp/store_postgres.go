// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/healthid/internal/platform/database/schema"
	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/internal/platform/postgres"
	"github.com/taibuivan/healthid/internal/users/account"
)

// PostgresCodeRepository implements [CodeRepository] on users.onetimecode.
type PostgresCodeRepository struct {
	pool postgres.DB
}

// NewCodeRepository creates a new Postgres implementation for the code audit trail.
func NewCodeRepository(pool postgres.DB) *PostgresCodeRepository {
	return &PostgresCodeRepository{pool: pool}
}

/*
Create inserts an audit record into users.onetimecode.

Parameters:
  - context: context.Context
  - code: *Code

Returns:
  - error: Insert failures
*/
func (repository *PostgresCodeRepository) Create(context context.Context, code *Code) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING %s`,
		schema.UserOneTimeCode.Table,
		schema.UserOneTimeCode.ID, schema.UserOneTimeCode.Identifier, schema.UserOneTimeCode.Mode,
		schema.UserOneTimeCode.Code, schema.UserOneTimeCode.IsValidated,
		schema.UserOneTimeCode.CreatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		code.ID,
		code.Identifier,
		string(code.Mode),
		code.Value,
	).Scan(&code.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_code_repo_create_failed: %w", dberr.Wrap(err, "issue code"))
	}
	return nil
}

/*
MarkValidated updates the record inside a transaction and commits only after
consume succeeds.

Description: The conditional UPDATE takes the row lock. A concurrent caller
blocks on it and, once the winner commits, matches zero rows.

Parameters:
  - context: context.Context
  - id: string
  - consume: func(context.Context) error

Returns:
  - *Code: Validated record
  - error: ErrInvalidOrExpiredCode, consume's error or storage failures
*/
func (repository *PostgresCodeRepository) MarkValidated(context context.Context, id string, consume func(context.Context) error) (*Code, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE
		WHERE %s = $1 AND %s = FALSE
		RETURNING %s, %s, %s, %s, %s`,
		schema.UserOneTimeCode.Table,
		schema.UserOneTimeCode.IsValidated,
		schema.UserOneTimeCode.ID, schema.UserOneTimeCode.IsValidated,
		schema.UserOneTimeCode.ID, schema.UserOneTimeCode.Identifier, schema.UserOneTimeCode.Mode,
		schema.UserOneTimeCode.Code, schema.UserOneTimeCode.CreatedAt,
	)

	code := &Code{Validated: true}
	err := postgres.WithTx(context, repository.pool, func(transaction pgx.Tx) error {
		var mode string
		err := transaction.QueryRow(context, query, id).Scan(
			&code.ID,
			&code.Identifier,
			&mode,
			&code.Value,
			&code.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidOrExpiredCode
			}
			return fmt.Errorf("postgres_code_repo_mark_failed: %w", err)
		}
		code.Mode = account.Mode(mode)

		// The ephemeral side decides whether this transaction may commit
		return consume(context)
	})
	if err != nil {
		return nil, err
	}
	return code, nil
}
