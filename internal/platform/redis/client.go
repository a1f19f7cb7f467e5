// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the client behind every ephemeral auth record.

Keys written through it (see constants.RedisPrefix*):

  - auth:mode:<handle>: the login mode a correlation handle belongs to.
  - auth:otp:<handle>: pending e-mail codes, consumed by a Lua compare-and-delete.
  - auth:bankid:order:<token>: started BankID orders.
  - auth:refresh:<id> and auth:blocklist:<hash>: the session mirror.

Every key carries a TTL, so a Redis flush logs users out and cancels pending
logins but never corrupts durable state.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second

	poolSize     = 20
	minIdleConns = 2
	maxIdleConns = 5
)

// scriptProbe must evaluate on the server. Single-use codes depend on EVAL.
const scriptProbe = "return 1"

/*
NewClient parses redisURL, connects and checks that Lua scripting is available.

Parameters:
  - context: stdctx.Context (Bounds the startup checks)
  - redisURL: string
  - logger: *slog.Logger

Returns:
  - *redis.Client: Connected client
  - error: Invalid URL, unreachable server or scripting disabled
*/
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns
	options.MaxIdleConns = maxIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.Eval(context, scriptProbe, nil).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: lua scripting unavailable: %w", err)
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the server answers within pingTimeout.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// Probe adapts [Ping] to the readiness check signature.
func Probe(client *redis.Client) func(stdctx.Context) error {
	return func(context stdctx.Context) error {
		return Ping(context, client)
	}
}
