// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token

import (
	"context"
	"fmt"

	"github.com/taibuivan/healthid/internal/platform/database/schema"
	"github.com/taibuivan/healthid/internal/platform/dberr"
	"github.com/taibuivan/healthid/internal/platform/postgres"
)

// PostgresRefreshRepository implements [RefreshRepository] on users.refreshtoken.
type PostgresRefreshRepository struct {
	pool postgres.DB
}

// NewRefreshRepository creates a new Postgres implementation for refresh tokens.
func NewRefreshRepository(pool postgres.DB) *PostgresRefreshRepository {
	return &PostgresRefreshRepository{pool: pool}
}

/*
Create inserts an active refresh token row.

Parameters:
  - context: context.Context
  - id: string (UUID)
  - accountID: int64

Returns:
  - error: Insert failures
*/
func (repository *PostgresRefreshRepository) Create(context context.Context, id string, accountID int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, TRUE)`,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.ID, schema.UserRefreshToken.AccountID, schema.UserRefreshToken.IsActive,
	)

	if _, err := repository.pool.Exec(context, query, id, accountID); err != nil {
		return fmt.Errorf("postgres_refresh_repo_create_failed: %w", dberr.Wrap(err, "issue refresh token"))
	}
	return nil
}

// FindOwner returns the owning account and the active flag of a token.
func (repository *PostgresRefreshRepository) FindOwner(context context.Context, id string) (int64, bool, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = $1`,
		schema.UserRefreshToken.AccountID, schema.UserRefreshToken.IsActive,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.ID,
	)

	var accountID int64
	var active bool
	if err := repository.pool.QueryRow(context, query, id).Scan(&accountID, &active); err != nil {
		return 0, false, dberr.Wrap(err, "find refresh token")
	}
	return accountID, active, nil
}

// Deactivate marks a token inactive.
func (repository *PostgresRefreshRepository) Deactivate(context context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = FALSE WHERE %s = $1 AND %s = TRUE`,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.IsActive,
		schema.UserRefreshToken.ID, schema.UserRefreshToken.IsActive,
	)

	if _, err := repository.pool.Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_refresh_repo_deactivate_failed: %w", dberr.Wrap(err, "revoke refresh token"))
	}
	return nil
}

/*
ListActiveIDs returns the ids of every active token owned by accountID.

Parameters:
  - context: context.Context
  - accountID: int64

Returns:
  - []string: Token ids
  - error: Query failures
*/
func (repository *PostgresRefreshRepository) ListActiveIDs(context context.Context, accountID int64) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = TRUE`,
		schema.UserRefreshToken.ID,
		schema.UserRefreshToken.Table,
		schema.UserRefreshToken.AccountID, schema.UserRefreshToken.IsActive,
	)

	rows, err := repository.pool.Query(context, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres_refresh_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres_refresh_repo_scan_failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
