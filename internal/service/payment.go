package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
)

// Reconciliation sources.
const (
	SourceCallback  = "callback"
	SourcePoll      = "poll"
	SourceSimulated = "simulated"
	SourceInitiate  = "initiate"
)

// Settlement is the outcome of applying a gateway result to a ticket.
// Applied is false when the ticket had already left awaiting_payment.
type Settlement struct {
	Ticket  *models.Ticket
	Applied bool
}

// PaymentService moves tickets from awaiting_payment to active or
// payment_failed. Callbacks, polling and simulated settlement all go through
// settle, which only acts on the transition out of awaiting_payment.
type PaymentService struct {
	store   repository.Store
	gateway gateway.Gateway
	promos  *PromoLedger
	notify  *dispatcher
	now     func() time.Time
	log     *slog.Logger
}

func NewPaymentService(store repository.Store, gw gateway.Gateway, promos *PromoLedger, notifier notify.Notifier) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gw,
		promos:  promos,
		notify:  newDispatcher(notifier, store.Events()),
		now:     time.Now,
		log:     slog.With("component", "payments"),
	}
}

// Initiate asks the gateway to collect amount for an existing ticket that is
// awaiting payment. A rejection fails the ticket and returns a
// *PaymentInitiationError; acceptance stores the correlation ids.
func (s *PaymentService) Initiate(ctx context.Context, ticketID, phone string, amount decimal.Decimal) (*models.Ticket, error) {
	ticket, err := s.Status(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State() != models.StateAwaitingPayment {
		return ticket, &StateConflictError{TicketID: ticketID, Current: ticket.State()}
	}
	if ticket.CheckoutRequestID != nil {
		return ticket, nil
	}

	// nothing below may be abandoned half way once the gateway has been called
	ctx = context.WithoutCancel(ctx)
	mode := string(s.gateway.Mode())

	msisdn, err := NormalizePhone(phone)
	if err != nil {
		metrics.RecordInitiation(mode, "invalid_phone")
		failed, ferr := s.fail(ctx, ticketID, "invalid phone number")
		if ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return failed, &PaymentInitiationError{TicketID: ticketID, Reason: "invalid phone number", Err: err}
	}

	if !amount.IsPositive() {
		st, err := s.settle(ctx, ticketID, gateway.Result{
			Outcome:       gateway.OutcomeSucceeded,
			TransactionID: models.NoChargeTransactionPrefix + ticketID,
		}, SourceInitiate)
		if err != nil {
			return nil, err
		}
		metrics.RecordInitiation(mode, "no_charge")
		return st.Ticket, nil
	}

	acc, err := s.gateway.Initiate(ctx, gateway.PaymentRequest{
		Phone:       msisdn,
		Amount:      amount,
		Reference:   ticketID,
		Description: "Event ticket",
	})
	if err != nil {
		reason := "payment provider unavailable"
		var rej *gateway.RejectedError
		if errors.As(err, &rej) && rej.Reason != "" {
			reason = rej.Reason
		}
		s.log.Warn("payment initiation rejected", "ticket_id", ticketID, "phone", maskPhone(msisdn), "error", err)
		metrics.RecordInitiation(mode, "rejected")

		failed, ferr := s.fail(ctx, ticketID, reason)
		if ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return failed, &PaymentInitiationError{TicketID: ticketID, Reason: reason, Err: err}
	}

	updated, err := s.store.Tickets().Update(ctx, ticketID, models.StateAwaitingPayment, repository.TicketPatch{
		MpesaPhone:        &msisdn,
		CheckoutRequestID: &acc.CheckoutRequestID,
		MerchantRequestID: &acc.MerchantRequestID,
	})
	if errors.Is(err, repository.ErrStateConflict) {
		return s.Status(ctx, ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("store correlation ids: %w", err)
	}

	metrics.RecordInitiation(mode, "accepted")
	s.log.Info("payment initiated", "ticket_id", ticketID, "mode", mode,
		"checkout_request_id", acc.CheckoutRequestID, "phone", maskPhone(msisdn))
	return updated, nil
}

// HandleCallback applies a pushed gateway result. Results for tickets that
// are already terminal are no-ops.
func (s *PaymentService) HandleCallback(ctx context.Context, res gateway.Result) (*Settlement, error) {
	return s.reconcile(ctx, res, SourceCallback)
}

// Listen applies results from a channel until it closes or ctx ends.
func (s *PaymentService) Listen(ctx context.Context, results <-chan gateway.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if _, err := s.reconcile(ctx, res, SourceSimulated); err != nil {
				s.log.Error("simulated settlement failed", "checkout_request_id", res.CheckoutRequestID, "error", err)
			}
		}
	}
}

func (s *PaymentService) reconcile(ctx context.Context, res gateway.Result, source string) (*Settlement, error) {
	ticket, err := s.store.Tickets().FindByCheckoutRequestID(ctx, res.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownCorrelation
		}
		return nil, err
	}
	if !res.Terminal() {
		s.log.Debug("result not final, payment still pending",
			"ticket_id", ticket.TicketID, "source", source, "result_code", res.Code)
		return &Settlement{Ticket: ticket}, nil
	}
	return s.settle(ctx, ticket.TicketID, res, source)
}

// Refresh queries the gateway for a ticket still awaiting payment and
// settles it when the gateway has decided.
func (s *PaymentService) Refresh(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.Status(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State() != models.StateAwaitingPayment || ticket.CheckoutRequestID == nil {
		return ticket, nil
	}

	res, err := s.gateway.Query(ctx, *ticket.CheckoutRequestID)
	if err != nil {
		return ticket, fmt.Errorf("query gateway: %w", err)
	}
	if !res.Terminal() {
		return ticket, nil
	}

	st, err := s.settle(ctx, ticketID, *res, SourcePoll)
	if err != nil {
		return ticket, err
	}
	return st.Ticket, nil
}

func (s *PaymentService) Status(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.store.Tickets().FindByTicketID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

func (s *PaymentService) fail(ctx context.Context, ticketID, reason string) (*models.Ticket, error) {
	st, err := s.settle(ctx, ticketID, gateway.Result{Outcome: gateway.OutcomeFailed, Reason: reason}, SourceInitiate)
	if err != nil {
		return nil, err
	}
	return st.Ticket, nil
}

// settle performs the single transition out of awaiting_payment together with
// its side effects. Whoever loses the race observes the terminal state and
// changes nothing.
func (s *PaymentService) settle(ctx context.Context, ticketID string, res gateway.Result, source string) (*Settlement, error) {
	out := &Settlement{}
	var anomalies []string
	now := s.now()

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().FindByTicketID(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.State() != models.StateAwaitingPayment {
			out.Ticket = ticket
			return nil
		}

		var patch repository.TicketPatch
		if res.Outcome == gateway.OutcomeSucceeded {
			patch.State = models.StateActive
			receipt := ReceiptNumber(ticketID, now)
			patch.ReceiptNumber = &receipt
			if res.TransactionID != "" {
				txID := res.TransactionID
				patch.TransactionID = &txID
			}
		} else {
			patch.State = models.StatePaymentFailed
			reason := res.Reason
			if reason == "" {
				reason = "payment failed"
			}
			patch.FailureReason = &reason
		}

		updated, err := tx.Tickets().Update(ctx, ticketID, models.StateAwaitingPayment, patch)
		if errors.Is(err, repository.ErrStateConflict) {
			current, ferr := tx.Tickets().FindByTicketID(ctx, ticketID)
			if ferr != nil {
				return ferr
			}
			out.Ticket = current
			return nil
		}
		if err != nil {
			return err
		}

		if patch.State == models.StateActive {
			if err := tx.Events().IncrementSold(ctx, ticket.EventID, ticket.Quantity); err != nil {
				if !errors.Is(err, repository.ErrCapacityExceeded) {
					return fmt.Errorf("increment tickets_sold: %w", err)
				}
				anomalies = append(anomalies, "capacity_exceeded")
			}
			if ticket.PromoCodeID != nil {
				if err := s.promos.RecordUse(ctx, tx, *ticket.PromoCodeID); err != nil {
					if !errors.Is(err, ErrPromo) {
						return fmt.Errorf("record promo use: %w", err)
					}
					anomalies = append(anomalies, "promo_limit_exceeded")
				}
			}
		}

		out.Ticket = updated
		out.Applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if !out.Applied {
		s.log.Info("result ignored, ticket already settled",
			"ticket_id", ticketID, "source", source, "state", out.Ticket.State())
		return out, nil
	}

	for _, kind := range anomalies {
		// the money has moved, so the payment is recorded regardless
		metrics.RecordAnomaly(kind)
		s.log.Error("counter not updated for settled payment", "ticket_id", ticketID, "kind", kind)
	}

	outcome := "completed"
	kind := notify.TicketPaid
	if out.Ticket.State() == models.StatePaymentFailed {
		outcome = "failed"
		kind = notify.TicketPaymentFailed
	}
	metrics.RecordSettlement(source, outcome)
	s.log.Info("payment settled", "ticket_id", ticketID, "source", source, "outcome", outcome,
		"simulated", out.Ticket.IsSimulated())
	s.notify.send(kind, out.Ticket, now)
	return out, nil
}
