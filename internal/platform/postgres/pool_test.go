// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/postgres"
)

// recordingTx implements the parts of pgx.Tx that WithTx touches.
type recordingTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (tx *recordingTx) Commit(context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *recordingTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *recordingTx
	beginErr error
}

func (beginner *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if beginner.beginErr != nil {
		return nil, beginner.beginErr
	}
	return beginner.tx, nil
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	errSentinel := errors.New("invalid code")

	t.Run("commit", func(t *testing.T) {
		beginner := &fakeBeginner{tx: &recordingTx{}}
		require.NoError(t, postgres.WithTx(ctx, beginner, func(pgx.Tx) error { return nil }))
		assert.True(t, beginner.tx.committed)
		assert.False(t, beginner.tx.rolledBack)
	})

	t.Run("fn_error_rolls_back_unwrapped", func(t *testing.T) {
		beginner := &fakeBeginner{tx: &recordingTx{}}
		err := postgres.WithTx(ctx, beginner, func(pgx.Tx) error { return errSentinel })
		assert.Same(t, errSentinel, err)
		assert.False(t, beginner.tx.committed)
		assert.True(t, beginner.tx.rolledBack)
	})

	t.Run("commit_failure", func(t *testing.T) {
		beginner := &fakeBeginner{tx: &recordingTx{commitErr: errors.New("connection reset")}}
		err := postgres.WithTx(ctx, beginner, func(pgx.Tx) error { return nil })
		assert.ErrorContains(t, err, "postgres_tx_commit_failed")
		assert.True(t, beginner.tx.rolledBack)
	})

	t.Run("begin_failure", func(t *testing.T) {
		called := false
		beginner := &fakeBeginner{beginErr: errors.New("pool closed")}
		err := postgres.WithTx(ctx, beginner, func(pgx.Tx) error { called = true; return nil })
		assert.ErrorContains(t, err, "postgres_tx_begin_failed")
		assert.False(t, called)
	})
}
