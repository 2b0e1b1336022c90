package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourdudeken/eventtik/internal/models"
)

const simulatedPrefix = "SIM-"

// Simulated settles every accepted request successfully after a fixed delay.
// It stands in for the provider when no credentials are configured. Results
// carry a SIMULATED- transaction id so they cannot pass for real charges.
type Simulated struct {
	delay   time.Duration
	results chan Result
	now     func() time.Time

	mu       sync.Mutex
	accepted map[string]time.Time
	timers   []*time.Timer
	closed   bool
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{
		delay:    delay,
		results:  make(chan Result, 256),
		now:      time.Now,
		accepted: make(map[string]time.Time),
	}
}

func (s *Simulated) Mode() Mode { return ModeSimulated }

// IsSimulated reports whether a checkout request id was issued by Simulated.
func IsSimulated(checkoutRequestID string) bool {
	return strings.HasPrefix(checkoutRequestID, simulatedPrefix)
}

// Results delivers the simulated callbacks.
func (s *Simulated) Results() <-chan Result {
	return s.results
}

func (s *Simulated) Initiate(_ context.Context, req PaymentRequest) (*Acceptance, error) {
	id := uuid.NewString()
	acc := &Acceptance{
		CheckoutRequestID: simulatedPrefix + "ws_CO_" + id,
		MerchantRequestID: simulatedPrefix + id[:8],
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &RejectedError{Code: "closed", Reason: "simulated gateway stopped"}
	}
	s.accepted[acc.CheckoutRequestID] = s.now()
	s.timers = append(s.timers, time.AfterFunc(s.delay, func() { s.deliver(acc) }))

	slog.Warn("simulated payment accepted, no money will move",
		"component", "gateway", "reference", req.Reference, "checkout_request_id", acc.CheckoutRequestID)
	return acc, nil
}

func (s *Simulated) Query(_ context.Context, checkoutRequestID string) (*Result, error) {
	s.mu.Lock()
	at, ok := s.accepted[checkoutRequestID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("simulated gateway: unknown checkout request %s", checkoutRequestID)
	}
	if s.now().Sub(at) < s.delay {
		return &Result{CheckoutRequestID: checkoutRequestID, Outcome: OutcomePending}, nil
	}
	res := s.success(checkoutRequestID, "")
	return &res, nil
}

// Close stops pending deliveries and closes the results channel.
func (s *Simulated) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	close(s.results)
}

func (s *Simulated) deliver(acc *Acceptance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.results <- s.success(acc.CheckoutRequestID, acc.MerchantRequestID):
	default:
		// the reconciler's query path still settles the ticket
		slog.Warn("simulated result dropped, channel full", "component", "gateway", "checkout_request_id", acc.CheckoutRequestID)
	}
}

func (s *Simulated) success(checkoutRequestID, merchantRequestID string) Result {
	return Result{
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: merchantRequestID,
		Outcome:           OutcomeSucceeded,
		TransactionID:     fmt.Sprintf("%s%d", models.SimulatedTransactionPrefix, s.now().UnixNano()),
		Code:              "0",
		Reason:            "simulated settlement",
	}
}
