// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bankid_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/healthid/internal/users/bankid"
)

// # Test Doubles

type step struct {
	status string
	err    error
}

// scriptedProvider replays collect answers in order and repeats the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	steps     []step
	collects  int
	cancelled []string
	authErr   error
}

func (provider *scriptedProvider) Auth(_ context.Context, _ string) (*bankid.Order, error) {
	if provider.authErr != nil {
		return nil, provider.authErr
	}
	return &bankid.Order{OrderRef: "R1", AutoStartToken: "AST-1", QRStartToken: "QST", QRStartSecret: "SECRET"}, nil
}

func (provider *scriptedProvider) Collect(_ context.Context, orderRef string) (*bankid.CollectResult, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	index := provider.collects
	if index >= len(provider.steps) {
		index = len(provider.steps) - 1
	}
	provider.collects++

	current := provider.steps[index]
	if current.err != nil {
		return nil, current.err
	}

	result := &bankid.CollectResult{OrderRef: orderRef, Status: current.status}
	if current.status == bankid.StatusComplete {
		completion := &bankid.CompletionData{}
		completion.User.PersonalNumber = "199001011234"
		completion.User.GivenName = "Anna"
		completion.User.Surname = "Andersson"
		result.CompletionData = completion
	}
	if current.status == bankid.StatusFailed {
		result.HintCode = "userCancel"
	}
	return result, nil
}

func (provider *scriptedProvider) Cancel(_ context.Context, orderRef string) error {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.cancelled = append(provider.cancelled, orderRef)
	return nil
}

func (provider *scriptedProvider) count() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.collects
}

func newService(t *testing.T, provider bankid.Provider, config bankid.Config) (*bankid.Service, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return bankid.NewService(provider, bankid.NewOrderStore(client), config, logger), server
}

func fastConfig() bankid.Config {
	return bankid.Config{
		OrderTTL:        15 * time.Minute,
		PollInterval:    5 * time.Millisecond,
		PollTimeout:     2 * time.Second,
		MaxPollAttempts: 50,
		MaxRetries:      2,
		RetryInterval:   time.Millisecond,
	}
}

// # Tests

/*
TestPoll_PendingThenComplete yields the identity claim.
*/
func TestPoll_PendingThenComplete(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{status: bankid.StatusPending},
		{status: bankid.StatusPending},
		{status: bankid.StatusComplete},
	}}
	service, _ := newService(t, provider, fastConfig())

	completion, err := service.Poll(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "199001011234", completion.User.PersonalNumber)
	assert.Equal(t, 3, provider.count())
}

/*
TestPoll_PendingThenFailed yields AuthenticationFailed.
*/
func TestPoll_PendingThenFailed(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{status: bankid.StatusPending},
		{status: bankid.StatusFailed},
	}}
	service, _ := newService(t, provider, fastConfig())

	_, err := service.Poll(context.Background(), "R1")
	assert.ErrorIs(t, err, bankid.ErrAuthenticationFailed)
	assert.Equal(t, 2, provider.count())
}

/*
TestPoll_NeverLeavesPending is terminated by the caller's deadline.
*/
func TestPoll_NeverLeavesPending(t *testing.T) {
	provider := &scriptedProvider{steps: []step{{status: bankid.StatusPending}}}
	config := fastConfig()
	config.MaxPollAttempts = 1 << 20
	service, _ := newService(t, provider, config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := service.Poll(ctx, "R1")
	assert.ErrorIs(t, err, bankid.ErrPollTimeout)
	assert.Less(t, time.Since(started), time.Second)
}

/*
TestPoll_AttemptCap stops after MaxPollAttempts collects.
*/
func TestPoll_AttemptCap(t *testing.T) {
	provider := &scriptedProvider{steps: []step{{status: bankid.StatusPending}}}
	config := fastConfig()
	config.MaxPollAttempts = 3
	service, _ := newService(t, provider, config)

	_, err := service.Poll(context.Background(), "R1")
	assert.ErrorIs(t, err, bankid.ErrPollTimeout)
	assert.Equal(t, 3, provider.count())
}

/*
TestPoll_CallerCancellation stops polling when the request goes away.
*/
func TestPoll_CallerCancellation(t *testing.T) {
	provider := &scriptedProvider{steps: []step{{status: bankid.StatusPending}}}
	service, _ := newService(t, provider, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := service.Poll(ctx, "R1")
	assert.ErrorIs(t, err, context.Canceled)
}

/*
TestPoll_TransientRetry retries 5xx and transport errors, but not 4xx.
*/
func TestPoll_TransientRetry(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		provider := &scriptedProvider{steps: []step{
			{err: &bankid.ProviderError{StatusCode: 503}},
			{err: errors.New("connection reset by peer")},
			{status: bankid.StatusComplete},
		}}
		service, _ := newService(t, provider, fastConfig())

		completion, err := service.Poll(context.Background(), "R1")
		require.NoError(t, err)
		assert.Equal(t, "Anna", completion.User.GivenName)
		assert.Equal(t, 3, provider.count())
	})

	t.Run("retries_exhausted", func(t *testing.T) {
		provider := &scriptedProvider{steps: []step{{err: &bankid.ProviderError{StatusCode: 500}}}}
		service, _ := newService(t, provider, fastConfig())

		_, err := service.Poll(context.Background(), "R1")
		assert.ErrorIs(t, err, bankid.ErrAuthenticationFailed)
		assert.Equal(t, 3, provider.count())
	})

	t.Run("client_error", func(t *testing.T) {
		provider := &scriptedProvider{steps: []step{{err: &bankid.ProviderError{StatusCode: 400, ErrorCode: "invalidParameters"}}}}
		service, _ := newService(t, provider, fastConfig())

		_, err := service.Poll(context.Background(), "R1")
		assert.ErrorIs(t, err, bankid.ErrAuthenticationFailed)
		assert.Equal(t, 1, provider.count())
	})
}

/*
TestOrderLifecycle covers start, lookup, QR data, cancel and expiry.
*/
func TestOrderLifecycle(t *testing.T) {
	provider := &scriptedProvider{steps: []step{{status: bankid.StatusPending}}}
	service, server := newService(t, provider, fastConfig())
	ctx := context.Background()

	order, err := service.Start(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, server.TTL("auth:bankid:order:AST-1"))

	orderRef, err := service.ResolveOrderRef(ctx, order.AutoStartToken)
	require.NoError(t, err)
	assert.Equal(t, "R1", orderRef)

	qr, err := service.QR(ctx, order.AutoStartToken)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr, "bankid.QST."))

	require.NoError(t, service.Cancel(ctx, order.AutoStartToken))
	assert.Equal(t, []string{"R1"}, provider.cancelled)

	_, err = service.ResolveOrderRef(ctx, order.AutoStartToken)
	assert.ErrorIs(t, err, bankid.ErrOrderNotFound)

	_, err = service.Start(ctx, "203.0.113.7")
	require.NoError(t, err)
	server.FastForward(16 * time.Minute)
	_, err = service.ResolveOrderRef(ctx, "AST-1")
	assert.ErrorIs(t, err, bankid.ErrOrderNotFound)
}

/*
TestStart_ProviderFailures separates refused orders from an unreachable provider.
*/
func TestStart_ProviderFailures(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected error
	}{
		{"bad_request", &bankid.ProviderError{StatusCode: 400, ErrorCode: "invalidParameters"}, bankid.ErrAuthenticationFailed},
		{"maintenance", &bankid.ProviderError{StatusCode: 503, ErrorCode: "maintenance"}, bankid.ErrProviderUnavailable},
		{"transport", errors.New("connection reset by peer"), bankid.ErrProviderUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &scriptedProvider{steps: []step{{status: bankid.StatusPending}}, authErr: tc.err}
			service, server := newService(t, provider, fastConfig())

			_, err := service.Start(context.Background(), "203.0.113.7")
			assert.ErrorIs(t, err, tc.expected)
			assert.Empty(t, server.Keys())
		})
	}
}

/*
TestQRData checks the animated QR format against a known HMAC.
*/
func TestQRData(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	order := &bankid.Order{
		QRStartToken:  "67df3917-fa0d-44e5-b327-edcc928297f8",
		QRStartSecret: "d28db9a7-4cde-429e-a983-359be676944c",
		StartedAt:     started,
	}

	assert.Equal(t,
		"bankid.67df3917-fa0d-44e5-b327-edcc928297f8.0.dc69358e712458a66a7525beef148ae8526b1c71610eff2c16cdffb4cdac9bf8",
		bankid.QRData(order, started),
	)
	assert.True(t, strings.HasPrefix(bankid.QRData(order, started.Add(3*time.Second)), "bankid.67df3917-fa0d-44e5-b327-edcc928297f8.3."))
}
