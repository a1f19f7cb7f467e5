// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/platform/ctxutil"
	"github.com/taibuivan/healthid/internal/platform/sec"
)

func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.RequestID(ctx))

	ctx = ctxutil.WithRequestID(ctx, "0192f1c3-request")
	assert.Equal(t, "0192f1c3-request", ctxutil.RequestID(ctx))
}

func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, slog.Default(), ctxutil.Logger(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.Logger(ctx))
}

/*
TestContext_Caller stores the claims and the bearer token together.
*/
func TestContext_Caller(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.Claims(ctx))
	assert.Empty(t, ctxutil.AccessToken(ctx))

	claims := &sec.AuthClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "0192f1c3-handle"}}
	ctx = ctxutil.WithCaller(ctx, claims, "bearer-value")

	retrieved := ctxutil.Claims(ctx)
	require.NotNil(t, retrieved)
	assert.Equal(t, "0192f1c3-handle", retrieved.Handle())
	assert.Equal(t, "bearer-value", ctxutil.AccessToken(ctx))
}
