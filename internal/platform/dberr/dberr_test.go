// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/dberr"
)

/*
TestWrap checks the classification of storage errors.
*/
func TestWrap(t *testing.T) {
	assert.Nil(t, dberr.Wrap(nil, "load"))

	assert.Same(t, dberr.ErrNotFound, dberr.Wrap(fmt.Errorf("scan: %w", pgx.ErrNoRows), "load"))

	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.Same(t, dberr.ErrDuplicate, dberr.Wrap(fmt.Errorf("insert: %w", unique), "insert"))

	wrapped := dberr.Wrap(errors.New("connection reset"), "insert binding")
	appError := apperr.As(wrapped)
	if assert.NotNil(t, appError) {
		assert.Equal(t, 500, appError.HTTPStatus)
		assert.Contains(t, appError.Message, "insert binding")
	}
}

/*
TestIsUniqueViolation ignores other SQLSTATE values.
*/
func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, dberr.IsUniqueViolation(errors.New("boom")))
}
