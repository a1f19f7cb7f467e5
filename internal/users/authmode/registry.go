// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authmode records which validator owns an in-flight correlation handle.

A client receives an opaque handle when it starts a flow (a code id, a phone
number or a BankID start token). The registry binds that handle to a mode so
the generic verify entry point can dispatch without inspecting the payload.
*/
package authmode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/healthid/internal/platform/apperr"
	"github.com/taibuivan/healthid/internal/platform/constants"
	"github.com/taibuivan/healthid/internal/users/account"
)

// ErrNotFound is returned for an unknown or expired handle. It is reported
// exactly like an invalid code so callers cannot probe for live handles.
var ErrNotFound = apperr.Unauthorized("Invalid or expired code")

// Registry binds correlation handles to authentication modes in Redis.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistry creates a Registry whose bindings live for ttl.
func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl}
}

func key(handle string) string {
	return constants.RedisPrefixAuthMode + handle
}

/*
Bind records the mode for a handle, replacing any previous binding.

Parameters:
  - context: context.Context
  - handle: string
  - mode: account.Mode

Returns:
  - error: Connectivity failures
*/
func (registry *Registry) Bind(context context.Context, handle string, mode account.Mode) error {
	if err := registry.client.Set(context, key(handle), string(mode), registry.ttl).Err(); err != nil {
		return fmt.Errorf("redis_auth_mode_bind_failed: %w", err)
	}
	return nil
}

/*
Resolve returns the mode bound to a handle.

Parameters:
  - context: context.Context
  - handle: string

Returns:
  - account.Mode: The bound mode
  - error: ErrNotFound if absent, expired or corrupt
*/
func (registry *Registry) Resolve(context context.Context, handle string) (account.Mode, error) {
	value, err := registry.client.Get(context, key(handle)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis_auth_mode_resolve_failed: %w", err)
	}

	mode := account.Mode(value)
	if !mode.Valid() {
		return "", ErrNotFound
	}
	return mode, nil
}

// Release drops the binding once its flow has terminated successfully.
func (registry *Registry) Release(context context.Context, handle string) error {
	if err := registry.client.Del(context, key(handle)).Err(); err != nil {
		return fmt.Errorf("redis_auth_mode_release_failed: %w", err)
	}
	return nil
}
