// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/healthid/internal/platform/constants"
)

// RedisMirrorStore implements [MirrorStore] using Redis.
type RedisMirrorStore struct {
	client *redis.Client
}

// NewMirrorStore creates a new Redis-backed MirrorStore.
func NewMirrorStore(client *redis.Client) *RedisMirrorStore {
	return &RedisMirrorStore{client: client}
}

func refreshKey(id string) string {
	return constants.RedisPrefixRefreshToken + id
}

func blocklistKey(digest string) string {
	return constants.RedisPrefixBlocklist + digest
}

// SetRefresh mirrors a refresh token with its owner.
func (store *RedisMirrorStore) SetRefresh(context context.Context, id string, accountID int64, ttl time.Duration) error {
	if err := store.client.Set(context, refreshKey(id), accountID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_refresh_set_failed: %w", err)
	}
	return nil
}

/*
GetRefresh resolves a refresh mirror to its owning account id.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - int64: Owner account id
  - error: ErrInvalidRefreshToken if absent, or connectivity errors
*/
func (store *RedisMirrorStore) GetRefresh(context context.Context, id string) (int64, error) {
	accountID, err := store.client.Get(context, refreshKey(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidRefreshToken
		}
		return 0, fmt.Errorf("redis_refresh_get_failed: %w", err)
	}
	return accountID, nil
}

// ExpireRefresh resets the lifetime of a live mirror.
func (store *RedisMirrorStore) ExpireRefresh(context context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := store.client.Expire(context, refreshKey(id), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_refresh_expire_failed: %w", err)
	}
	return ok, nil
}

// DeleteRefresh removes mirrors. Absent keys are ignored.
func (store *RedisMirrorStore) DeleteRefresh(context context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = refreshKey(id)
	}
	if err := store.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("redis_refresh_delete_failed: %w", err)
	}
	return nil
}

// Blocklist records an access token digest until ttl elapses.
func (store *RedisMirrorStore) Blocklist(context context.Context, digest string, ttl time.Duration) error {
	if err := store.client.Set(context, blocklistKey(digest), 0, ttl).Err(); err != nil {
		return fmt.Errorf("redis_blocklist_set_failed: %w", err)
	}
	return nil
}

// IsBlocklisted reports whether a digest is on the blocklist.
func (store *RedisMirrorStore) IsBlocklisted(context context.Context, digest string) (bool, error) {
	count, err := store.client.Exists(context, blocklistKey(digest)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blocklist_check_failed: %w", err)
	}
	return count > 0, nil
}
