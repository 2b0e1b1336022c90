// Package gateway abstracts the mobile-money provider that collects ticket
// payments.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

type PaymentRequest struct {
	Phone       string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// Acceptance carries the correlation ids returned when the provider queues a request.
type Acceptance struct {
	CheckoutRequestID string
	MerchantRequestID string
}

// Result is the provider's verdict on a payment, from a callback or a query.
type Result struct {
	CheckoutRequestID string
	MerchantRequestID string
	Outcome           Outcome
	TransactionID     string
	Code              string
	Reason            string
}

func (r Result) Terminal() bool {
	return r.Outcome == OutcomeSucceeded || r.Outcome == OutcomeFailed
}

var ErrRejected = errors.New("payment request rejected")

// RejectedError is returned when the provider refuses to start a payment or
// cannot be reached.
type RejectedError struct {
	Code   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment request rejected: %s (%s)", e.Reason, e.Code)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

type Gateway interface {
	Mode() Mode
	Initiate(ctx context.Context, req PaymentRequest) (*Acceptance, error)
	// Query returns the current outcome of an accepted request. A pending
	// Result means the provider has not decided yet.
	Query(ctx context.Context, checkoutRequestID string) (*Result, error)
}
