// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/users/otp"
)

/*
TestCodeCache_Consume covers the compare-and-delete script outcomes.
*/
func TestCodeCache_Consume(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	cache := otp.NewCodeCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "h1", "123456", time.Minute))

	// Mismatch keeps the entry
	_, err := cache.Consume(ctx, "h1", "654321")
	assert.ErrorIs(t, err, otp.ErrInvalidOrExpiredCode)
	assert.True(t, server.Exists("auth:otp:h1"))

	// Match deletes it and reports the remaining TTL
	remaining, err := cache.Consume(ctx, "h1", "123456")
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Milliseconds(), remaining.Milliseconds(), 1000)
	assert.False(t, server.Exists("auth:otp:h1"))

	// Absent
	_, err = cache.Consume(ctx, "h1", "123456")
	assert.ErrorIs(t, err, otp.ErrInvalidOrExpiredCode)

	// Restore only refills a missing entry
	require.NoError(t, cache.Restore(ctx, "h1", "123456", remaining))
	require.NoError(t, cache.Restore(ctx, "h1", "999999", remaining))
	value, err := server.Get("auth:otp:h1")
	require.NoError(t, err)
	assert.Equal(t, "123456", value)

	require.NoError(t, cache.Restore(ctx, "h2", "123456", 0))
	assert.False(t, server.Exists("auth:otp:h2"))
}
