// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/postgres/postgrestest"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/internal/users/otp"
)

/*
TestPostgresCodeRepository_MarkValidated covers the single-use UPDATE: a row
that is already validated matches nothing, and the update only commits when
consume succeeds.
*/
func TestPostgresCodeRepository_MarkValidated(t *testing.T) {
	createdAt := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	updated := postgrestest.Row{Values: []any{"code-1", "anna@healthid.app", "EMAIL", "123456", createdAt}}
	errConsume := errors.New("ephemeral entry gone")

	tests := []struct {
		name       string
		row        postgrestest.Row
		consumeErr error
		wantErr    error
		consumed   bool
		committed  bool
	}{
		{name: "validated", row: updated, consumed: true, committed: true},
		{name: "already_validated", row: postgrestest.Row{Err: pgx.ErrNoRows}, wantErr: otp.ErrInvalidOrExpiredCode},
		{name: "consume_rejects", row: updated, consumeErr: errConsume, wantErr: errConsume, consumed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &postgrestest.DB{Rows: []postgrestest.Row{tt.row}}
			consumed := false

			code, err := otp.NewCodeRepository(db).MarkValidated(context.Background(), "code-1", func(context.Context) error {
				consumed = true
				return tt.consumeErr
			})

			assert.Equal(t, tt.consumed, consumed)
			assert.Equal(t, tt.committed, db.Committed)
			require.Len(t, db.Statements, 1)
			assert.Contains(t, db.Statements[0].SQL, "isvalidated = FALSE")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, code)
				assert.True(t, db.RolledBack)
				return
			}

			require.NoError(t, err)
			assert.True(t, code.Validated)
			assert.Equal(t, account.ModeEmail, code.Mode)
			assert.Equal(t, "123456", code.Value)
			assert.Equal(t, createdAt, code.CreatedAt)
		})
	}
}

/*
TestPostgresCodeRepository_Create stores the audit row unvalidated.
*/
func TestPostgresCodeRepository_Create(t *testing.T) {
	createdAt := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	db := &postgrestest.DB{Rows: []postgrestest.Row{{Values: []any{createdAt}}}}
	code := &otp.Code{ID: "code-1", Identifier: "+46701234567", Mode: account.ModePhone, Value: "0042"}

	require.NoError(t, otp.NewCodeRepository(db).Create(context.Background(), code))
	assert.Equal(t, createdAt, code.CreatedAt)
	assert.Equal(t, []any{"code-1", "+46701234567", "PHONE", "0042"}, db.Statements[0].Args)

	failing := &postgrestest.DB{Rows: []postgrestest.Row{{Err: errors.New("connection reset by peer")}}}
	assert.ErrorContains(t, otp.NewCodeRepository(failing).Create(context.Background(), code), "postgres_code_repo_create_failed")
}
