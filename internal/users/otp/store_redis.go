// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/healthid/internal/platform/constants"
)

// consumeCodeLua deletes KEYS[1] only when it holds ARGV[1].
// Returns the remaining TTL in milliseconds (>= 0) on success,
// -1 on mismatch and -2 when the key does not exist.
var consumeCodeLua = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if not stored then
  return -2
end
if stored ~= ARGV[1] then
  return -1
end
local ttl = redis.call('PTTL', KEYS[1])
redis.call('DEL', KEYS[1])
if ttl < 0 then
  ttl = 0
end
return ttl
`)

// RedisCodeCache implements [CodeCache] using Redis.
type RedisCodeCache struct {
	client *redis.Client
}

// NewCodeCache creates a new Redis-backed CodeCache.
func NewCodeCache(client *redis.Client) *RedisCodeCache {
	return &RedisCodeCache{client: client}
}

func codeKey(handle string) string {
	return constants.RedisPrefixOTP + handle
}

// Store saves the code under its handle with the given TTL.
func (cache *RedisCodeCache) Store(context context.Context, handle, value string, ttl time.Duration) error {
	if err := cache.client.Set(context, codeKey(handle), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_code_store_failed: %w", err)
	}
	return nil
}

/*
Consume runs the compare-and-delete script.

Parameters:
  - context: context.Context
  - handle: string
  - value: string

Returns:
  - time.Duration: Remaining TTL at consumption
  - error: ErrInvalidOrExpiredCode or connectivity errors
*/
func (cache *RedisCodeCache) Consume(context context.Context, handle, value string) (time.Duration, error) {
	result, err := consumeCodeLua.Run(context, cache.client, []string{codeKey(handle)}, value).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis_code_consume_failed: %w", err)
	}
	if result < 0 {
		return 0, ErrInvalidOrExpiredCode
	}
	return time.Duration(result) * time.Millisecond, nil
}

// Restore re-seeds a consumed entry with what was left of its TTL.
func (cache *RedisCodeCache) Restore(context context.Context, handle, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := cache.client.SetNX(context, codeKey(handle), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_code_restore_failed: %w", err)
	}
	return nil
}
