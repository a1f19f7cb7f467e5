// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package bankid authenticates users through the BankID relying-party API.

# Protocol

An order is started with the end user's IP address. The client app opens
BankID with the returned autoStartToken (or scans the animated QR code) while
the server collects the order status until it completes or fails.

	INITIATED --auth--> PENDING --collect: pending--> PENDING
	                    PENDING --collect: complete--> COMPLETE
	                    PENDING --collect: failed---> FAILED

Polling is a bounded loop tied to the caller's context.
*/
package bankid

import (
	"fmt"
	"net/http"
	"time"

	"github.com/taibuivan/healthid/internal/platform/apperr"
)

var (
	// ErrAuthenticationFailed covers failed orders and non-transient provider errors.
	ErrAuthenticationFailed = apperr.Unauthorized("BankID authentication failed")

	// ErrOrderNotFound is returned for an unknown or expired start token.
	ErrOrderNotFound = apperr.Unauthorized("Unknown or expired BankID order")

	// ErrPollTimeout is returned when the order is still pending at the deadline.
	ErrPollTimeout = apperr.Unauthorized("BankID authentication timed out")

	// ErrProviderUnavailable is returned when an order cannot be started
	// because BankID does not answer or answers with a server error.
	ErrProviderUnavailable = apperr.BadGateway("BankID is temporarily unavailable")
)

// # Order State

// State is the local view of an order's lifecycle.
type State string

const (
	StateInitiated State = "INITIATED"
	StatePending   State = "PENDING"
	StateComplete  State = "COMPLETE"
	StateFailed    State = "FAILED"
)

// Collect statuses reported by the provider.
const (
	StatusPending    = "pending"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
	StatusUserCancel = "userCancel"
	StatusCancelled  = "cancelled"
)

// Next returns the state reached from a pending order after a collect status.
// Anything other than pending or complete is terminal failure.
func Next(status string) State {
	switch status {
	case StatusPending:
		return StatePending
	case StatusComplete:
		return StateComplete
	default:
		return StateFailed
	}
}

// # Wire Types

// Order is what the provider returns when an order starts.
type Order struct {
	OrderRef       string    `json:"orderRef"`
	AutoStartToken string    `json:"autoStartToken"`
	QRStartToken   string    `json:"qrStartToken"`
	QRStartSecret  string    `json:"qrStartSecret"`
	StartedAt      time.Time `json:"startedAt"`
}

// CollectResult is one status report for an order.
type CollectResult struct {
	OrderRef       string          `json:"orderRef"`
	Status         string          `json:"status"`
	HintCode       string          `json:"hintCode,omitempty"`
	CompletionData *CompletionData `json:"completionData,omitempty"`
}

// CompletionData is the identity claim of a completed order.
type CompletionData struct {
	User struct {
		PersonalNumber string `json:"personalNumber"`
		Name           string `json:"name"`
		GivenName      string `json:"givenName"`
		Surname        string `json:"surname"`
	} `json:"user"`
	Device struct {
		IPAddress string `json:"ipAddress"`
		UHI       string `json:"uhi,omitempty"`
	} `json:"device"`
	Cert *struct {
		NotBefore string `json:"notBefore"`
		NotAfter  string `json:"notAfter"`
	} `json:"cert,omitempty"`
	BankIDIssueDate string `json:"bankIdIssueDate,omitempty"`
	Signature       string `json:"signature"`
	OCSPResponse    string `json:"ocspResponse"`
}

// ProviderError is a non-200 answer from the provider.
type ProviderError struct {
	StatusCode int
	ErrorCode  string `json:"errorCode"`
	Details    string `json:"details"`
}

func (err *ProviderError) Error() string {
	return fmt.Sprintf("bankid: provider returned %d %s: %s", err.StatusCode, err.ErrorCode, err.Details)
}

// Transient reports whether retrying the same call may succeed.
func (err *ProviderError) Transient() bool {
	return err.StatusCode == http.StatusRequestTimeout || err.StatusCode >= http.StatusInternalServerError
}
