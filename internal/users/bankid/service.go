// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bankid

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Provider is the relying-party API surface used by [Service].
type Provider interface {
	Auth(context context.Context, endUserIP string) (*Order, error)
	Collect(context context.Context, orderRef string) (*CollectResult, error)
	Cancel(context context.Context, orderRef string) error
}

// OrderStore keeps started orders until they are collected or expire.
type OrderStore interface {
	Save(context context.Context, order *Order, ttl time.Duration) error
	Find(context context.Context, autoStartToken string) (*Order, error)
	Delete(context context.Context, autoStartToken string) error
}

// Config bounds the order lifetime and the poll loop.
type Config struct {
	OrderTTL        time.Duration
	PollInterval    time.Duration
	PollTimeout     time.Duration
	MaxPollAttempts int
	MaxRetries      uint
	RetryInterval   time.Duration
}

// Service runs the BankID start and poll protocol.
type Service struct {
	provider Provider
	orders   OrderStore
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new [Service].
func NewService(provider Provider, orders OrderStore, config Config, logger *slog.Logger) *Service {
	if config.RetryInterval <= 0 {
		config.RetryInterval = 250 * time.Millisecond
	}
	return &Service{
		provider: provider,
		orders:   orders,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// # Order Lifecycle

/*
Start opens an order and remembers it under its autoStartToken.

Parameters:
  - context: context.Context
  - endUserIP: string

Returns:
  - *Order: Started order (state PENDING)
  - error: ErrAuthenticationFailed (4xx), ErrProviderUnavailable (transport, 408, 5xx) or storage failures
*/
func (service *Service) Start(context context.Context, endUserIP string) (*Order, error) {
	order, err := service.provider.Auth(context, endUserIP)
	if err != nil {
		var providerError *ProviderError
		if errors.As(err, &providerError) && !providerError.Transient() {
			return nil, ErrAuthenticationFailed
		}
		service.logger.ErrorContext(context, "bankid_order_start_failed", slog.Any("error", err))
		return nil, fmt.Errorf("bankid_service_start_failed: %w: %w", ErrProviderUnavailable, err)
	}
	order.StartedAt = service.now()

	if err := service.orders.Save(context, order, service.config.OrderTTL); err != nil {
		return nil, fmt.Errorf("bankid_service_start_failed: %w", err)
	}

	service.logger.InfoContext(context, "bankid_order_started", slog.String("order_ref", order.OrderRef))
	return order, nil
}

// ResolveOrderRef maps the client's autoStartToken back to the provider's orderRef.
func (service *Service) ResolveOrderRef(context context.Context, autoStartToken string) (string, error) {
	order, err := service.orders.Find(context, autoStartToken)
	if err != nil {
		return "", err
	}
	return order.OrderRef, nil
}

// Finish forgets an order once its flow has completed.
func (service *Service) Finish(context context.Context, autoStartToken string) error {
	return service.orders.Delete(context, autoStartToken)
}

/*
Cancel aborts a pending order at the provider and forgets it.

Parameters:
  - context: context.Context
  - autoStartToken: string

Returns:
  - error: ErrOrderNotFound or provider failures
*/
func (service *Service) Cancel(context context.Context, autoStartToken string) error {
	order, err := service.orders.Find(context, autoStartToken)
	if err != nil {
		return err
	}

	if err := service.provider.Cancel(context, order.OrderRef); err != nil {
		var providerError *ProviderError
		if !errors.As(err, &providerError) || providerError.Transient() {
			return fmt.Errorf("bankid_service_cancel_failed: %w", err)
		}
		// The provider has already finished with the order
	}

	if err := service.orders.Delete(context, autoStartToken); err != nil {
		return fmt.Errorf("bankid_service_cancel_failed: %w", err)
	}
	service.logger.InfoContext(context, "bankid_order_cancelled", slog.String("order_ref", order.OrderRef))
	return nil
}

// # Polling

/*
Poll collects the order until it completes, fails or the deadline passes.

Description: The loop waits PollInterval between collects, gives up after
MaxPollAttempts, and never outlives PollTimeout or the caller's context.
Transient provider errors are retried with exponential backoff.

Parameters:
  - context: context.Context (Request scoped, cancelled if the client leaves)
  - orderRef: string

Returns:
  - *CompletionData: The identity claim
  - error: ErrAuthenticationFailed, ErrPollTimeout or context.Canceled
*/
func (service *Service) Poll(ctx context.Context, orderRef string) (*CompletionData, error) {
	ctx, cancel := context.WithTimeout(ctx, service.config.PollTimeout)
	defer cancel()

	state := StatePending
	for attempt := 1; attempt <= service.config.MaxPollAttempts; attempt++ {
		result, err := service.collect(ctx, orderRef)
		if err != nil {
			return nil, service.pollFailure(ctx, orderRef, err)
		}

		state = Next(result.Status)
		switch state {
		case StateComplete:
			if result.CompletionData == nil {
				service.logger.WarnContext(ctx, "bankid_completion_missing", slog.String("order_ref", orderRef))
				return nil, ErrAuthenticationFailed
			}
			service.logger.InfoContext(ctx, "bankid_order_completed",
				slog.String("order_ref", orderRef),
				slog.Int("attempts", attempt),
			)
			return result.CompletionData, nil

		case StateFailed:
			service.logger.InfoContext(ctx, "bankid_order_failed",
				slog.String("order_ref", orderRef),
				slog.String("status", result.Status),
				slog.String("hint_code", result.HintCode),
			)
			return nil, ErrAuthenticationFailed
		}

		// Still pending: wait for the next collect or the deadline
		timer := time.NewTimer(service.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, service.pollFailure(ctx, orderRef, ctx.Err())
		case <-timer.C:
		}
	}

	service.logger.WarnContext(ctx, "bankid_poll_attempts_exhausted",
		slog.String("order_ref", orderRef),
		slog.String("state", string(state)),
	)
	return nil, ErrPollTimeout
}

// collect calls the provider, retrying transient failures.
func (service *Service) collect(ctx context.Context, orderRef string) (*CollectResult, error) {
	operation := func() (*CollectResult, error) {
		result, err := service.provider.Collect(ctx, orderRef)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !transient(err) {
			return nil, backoff.Permanent(err)
		}
		service.logger.WarnContext(ctx, "bankid_collect_retry",
			slog.String("order_ref", orderRef),
			slog.Any("error", err),
		)
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = service.config.RetryInterval
	policy.MaxInterval = service.config.PollInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(service.config.MaxRetries+1),
	)
}

// pollFailure maps a collect or wait error onto the error taxonomy.
func (service *Service) pollFailure(ctx context.Context, orderRef string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		service.logger.WarnContext(ctx, "bankid_poll_timeout", slog.String("order_ref", orderRef))
		return ErrPollTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("bankid_poll_cancelled: %w", context.Canceled)
	}

	service.logger.WarnContext(ctx, "bankid_collect_failed",
		slog.String("order_ref", orderRef),
		slog.Any("error", err),
	)
	return ErrAuthenticationFailed
}

// transient reports whether a collect error may succeed on retry.
// Transport errors are transient; provider answers only for 408 and 5xx.
func transient(err error) bool {
	var providerError *ProviderError
	if errors.As(err, &providerError) {
		return providerError.Transient()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// # Animated QR

// QRData returns the animated QR payload for an order at time now.
//
// Format: bankid.<qrStartToken>.<seconds since start>.<hex HMAC-SHA256(qrStartSecret, seconds)>
func QRData(order *Order, now time.Time) string {
	elapsed := int64(now.Sub(order.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	seconds := strconv.FormatInt(elapsed, 10)

	mac := hmac.New(sha256.New, []byte(order.QRStartSecret))
	mac.Write([]byte(seconds))

	return "bankid." + order.QRStartToken + "." + seconds + "." + hex.EncodeToString(mac.Sum(nil))
}

// QR returns the current QR payload for the order behind autoStartToken.
func (service *Service) QR(context context.Context, autoStartToken string) (string, error) {
	order, err := service.orders.Find(context, autoStartToken)
	if err != nil {
		return "", err
	}
	return QRData(order, service.now()), nil
}
