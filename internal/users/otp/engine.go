// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/healthid/internal/platform/sec"
	"github.com/taibuivan/healthid/internal/users/account"
	"github.com/taibuivan/healthid/pkg/uuid"
)

// restoreTimeout bounds the cache write that undoes a consume after a failed commit.
const restoreTimeout = 2 * time.Second

// Engine issues and validates locally generated codes.
type Engine struct {
	codes  CodeRepository
	cache  CodeCache
	sender Sender
	length int
	ttl    time.Duration
	logger *slog.Logger
}

// EngineConfig holds the code shape and lifetime.
type EngineConfig struct {
	Length int
	TTL    time.Duration
}

// NewEngine constructs a new [Engine].
func NewEngine(codes CodeRepository, cache CodeCache, sender Sender, config EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		codes:  codes,
		cache:  cache,
		sender: sender,
		length: config.Length,
		ttl:    config.TTL,
		logger: logger,
	}
}

/*
Issue generates a code for identifier, records it and delivers it.

Description: The returned record's ID is the correlation handle the client
submits together with the code.

Parameters:
  - context: context.Context
  - identifier: string (Normalised e-mail address)
  - mode: account.Mode

Returns:
  - *Code: The issued record
  - error: Generation, storage or delivery failures
*/
func (engine *Engine) Issue(context context.Context, identifier string, mode account.Mode) (*Code, error) {
	value, err := sec.GenerateNumericCode(engine.length)
	if err != nil {
		return nil, fmt.Errorf("otp_engine_generate_failed: %w", err)
	}

	code := &Code{
		ID:         uuid.New(),
		Identifier: identifier,
		Mode:       mode,
		Value:      value,
	}

	// 1. Durable audit record first, so every live entry has one
	if err := engine.codes.Create(context, code); err != nil {
		return nil, fmt.Errorf("otp_engine_issue_failed: %w", err)
	}

	// 2. Ephemeral entry keyed by the correlation handle
	if err := engine.cache.Store(context, code.ID, code.Value, engine.ttl); err != nil {
		return nil, fmt.Errorf("otp_engine_issue_failed: %w", err)
	}

	// 3. Out-of-band delivery
	if err := engine.sender.SendCode(context, identifier, code.Value, engine.ttl); err != nil {
		return nil, fmt.Errorf("otp_engine_deliver_failed: %w", err)
	}

	engine.logger.InfoContext(context, "otp_code_issued",
		slog.String("handle", code.ID),
		slog.String("mode", string(mode)),
	)
	return code, nil
}

/*
Validate consumes the code behind handle if value matches.

Description: The durable flag flip and the ephemeral compare-and-delete run
as one step. If the commit fails after the ephemeral entry was consumed, the
entry is restored so a retry observes the same state as before.

Parameters:
  - ctx: context.Context
  - handle: string (Correlation handle returned by Issue)
  - value: string (Code supplied by the client)

Returns:
  - *Code: The validated record (Identifier is the authenticated identifier)
  - error: ErrInvalidOrExpiredCode or storage failures
*/
func (engine *Engine) Validate(ctx context.Context, handle, value string) (*Code, error) {
	if !uuid.Valid(handle) || value == "" {
		return nil, ErrInvalidOrExpiredCode
	}

	var remaining time.Duration
	consumed := false

	code, err := engine.codes.MarkValidated(ctx, handle, func(txContext context.Context) error {
		left, err := engine.cache.Consume(txContext, handle, value)
		if err != nil {
			return err
		}
		remaining, consumed = left, true
		return nil
	})
	if err == nil {
		engine.logger.InfoContext(ctx, "otp_code_validated", slog.String("handle", handle))
		return code, nil
	}

	if consumed {
		// The request context may be what failed the commit (client gone,
		// request timeout), so the restore must not inherit its cancellation.
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		restoreErr := engine.cache.Restore(restoreCtx, handle, value, remaining)
		cancel()
		if restoreErr != nil {
			engine.logger.ErrorContext(ctx, "otp_code_restore_failed",
				slog.String("handle", handle),
				slog.Any("error", restoreErr),
			)
		}
	}

	if errors.Is(err, ErrInvalidOrExpiredCode) {
		return nil, ErrInvalidOrExpiredCode
	}
	return nil, fmt.Errorf("otp_engine_validate_failed: %w", err)
}
