// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bankid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/healthid/internal/platform/constants"
)

// RedisOrderStore keeps started orders keyed by their autoStartToken.
type RedisOrderStore struct {
	client *redis.Client
}

// NewOrderStore creates a new Redis-backed order store.
func NewOrderStore(client *redis.Client) *RedisOrderStore {
	return &RedisOrderStore{client: client}
}

func orderKey(autoStartToken string) string {
	return constants.RedisPrefixBankIDOrder + autoStartToken
}

// Save stores the full order payload for ttl.
func (store *RedisOrderStore) Save(context context.Context, order *Order, ttl time.Duration) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("redis_bankid_order_encode_failed: %w", err)
	}
	if err := store.client.Set(context, orderKey(order.AutoStartToken), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_bankid_order_save_failed: %w", err)
	}
	return nil
}

/*
Find loads the order started under autoStartToken.

Parameters:
  - context: context.Context
  - autoStartToken: string

Returns:
  - *Order: Stored payload
  - error: ErrOrderNotFound if absent or expired
*/
func (store *RedisOrderStore) Find(context context.Context, autoStartToken string) (*Order, error) {
	payload, err := store.client.Get(context, orderKey(autoStartToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("redis_bankid_order_find_failed: %w", err)
	}

	order := &Order{}
	if err := json.Unmarshal(payload, order); err != nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Delete forgets an order.
func (store *RedisOrderStore) Delete(context context.Context, autoStartToken string) error {
	if err := store.client.Del(context, orderKey(autoStartToken)).Err(); err != nil {
		return fmt.Errorf("redis_bankid_order_delete_failed: %w", err)
	}
	return nil
}
