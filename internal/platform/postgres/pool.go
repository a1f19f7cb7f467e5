// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres manages the pgx connection pool of the durable auth
// records (accounts, bindings, one-time code audit, refresh tokens) and the
// transaction helper their repositories share.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/healthid/internal/platform/constants"
)

const (
	maxConns          = 25
	minConns          = 5
	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second

	// lockTimeout bounds how long a second validation of the same one-time
	// code waits on the row lock held by the first.
	lockTimeout = 5 * time.Second
)

// sessionSettings returns the statements run on every new physical connection.
func sessionSettings() []string {
	return []string{
		fmt.Sprintf("SET statement_timeout = '%ds'", int(constants.GlobalRequestTimeout.Seconds())),
		fmt.Sprintf("SET lock_timeout = '%ds'", int(lockTimeout.Seconds())),
		fmt.Sprintf("SET application_name = '%s'", constants.AppName),
	}
}

/*
NewPool creates and validates the connection pool.

Parameters:
  - ctx: context.Context (Bounds the initial connection attempt)
  - dsn: string (libpq connection string or postgres:// URL)
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: Connected pool
  - error: Invalid DSN or unreachable database
*/
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
		for _, statement := range sessionSettings() {
			if _, err := connection.Exec(ctx, statement); err != nil {
				return fmt.Errorf("postgres: session setup failed: %w", err)
			}
		}
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	stats := pool.Stat()
	logger.Info("postgres_pool_connected",
		slog.Int("max_conns", int(stats.MaxConns())),
		slog.Int("total_conns", int(stats.TotalConns())),
	)

	return pool, nil
}

// Ping verifies that the pool can reach the database.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}

// Probe adapts [Ping] to the readiness check signature.
func Probe(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return Ping(ctx, pool)
	}
}

// # Transactions

// Beginner is satisfied by *pgxpool.Pool and by an open pgx.Tx (savepoints).
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is the query surface repositories are built on. *pgxpool.Pool satisfies it.
type DB interface {
	Beginner
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

/*
WithTx runs fn inside a transaction and commits when it returns nil.

Description: Any error from fn rolls the transaction back and is returned
unchanged, so sentinel errors survive. Commit failures are wrapped and also
leave the database untouched.

Parameters:
  - ctx: context.Context
  - db: Beginner
  - fn: func(pgx.Tx) error

Returns:
  - error: fn's error, or a begin/commit failure
*/
func WithTx(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_tx_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_tx_commit_failed: %w", err)
	}
	return nil
}
