package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
)

const createAttempts = 3

// DefaultHoldTTL is how long a ticket awaiting payment holds inventory. A
// late success after that still settles, through the conditional sold
// counter increment.
const DefaultHoldTTL = 15 * time.Minute

type PurchaseRequest struct {
	EventID    uint
	UserID     string
	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	Quantity   int
	PromoCode  string
}

type Purchase struct {
	Ticket *models.Ticket
	Quote  Quote
}

// Availability is a point-in-time view of an event's inventory. Remaining is
// nil for open events.
type Availability struct {
	Event     *models.Event
	Reserved  int
	Remaining *int
}

type tracker interface {
	Track(ticketID string) bool
}

// CheckoutService turns a purchase request into a ticket awaiting payment and
// hands it to the payment orchestrator.
type CheckoutService struct {
	store    repository.Store
	promos   *PromoLedger
	payments *PaymentService
	tracker  tracker
	qrSecret []byte
	holdTTL  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewCheckoutService(store repository.Store, promos *PromoLedger, payments *PaymentService, tracker tracker, qrSecret []byte) *CheckoutService {
	return &CheckoutService{
		store:    store,
		promos:   promos,
		payments: payments,
		tracker:  tracker,
		qrSecret: qrSecret,
		holdTTL:  DefaultHoldTTL,
		now:      time.Now,
		log:      slog.With("component", "checkout"),
	}
}

// Purchase reserves tickets and starts payment. Inventory and promo errors
// are returned before any ticket row exists. When the gateway rejects the
// payment the failed ticket is returned alongside a *PaymentInitiationError.
func (s *CheckoutService) Purchase(ctx context.Context, req PurchaseRequest) (*Purchase, error) {
	phone, err := validateBuyer(&req)
	if err != nil {
		metrics.RecordPurchase("invalid")
		return nil, err
	}

	var (
		ticket *models.Ticket
		quote  Quote
	)
	for attempt := 1; ; attempt++ {
		ticket, quote, err = s.reserve(ctx, req, phone)
		if !errors.Is(err, repository.ErrDuplicateTicketID) || attempt == createAttempts {
			break
		}
		s.log.Warn("ticket id collision, retrying", "attempt", attempt)
	}
	if err != nil {
		metrics.RecordPurchase(purchaseOutcome(err))
		return nil, err
	}

	s.log.Info("ticket reserved", "ticket_id", ticket.TicketID, "event_id", req.EventID,
		"quantity", req.Quantity, "amount", quote.Total.String())

	paid, err := s.payments.Initiate(ctx, ticket.TicketID, phone, quote.Total)
	if err != nil {
		metrics.RecordPurchase(purchaseOutcome(err))
		if paid == nil {
			paid = ticket
		}
		return &Purchase{Ticket: paid, Quote: quote}, err
	}

	if paid.State() == models.StateAwaitingPayment && s.tracker != nil {
		s.tracker.Track(paid.TicketID)
	}
	metrics.RecordPurchase("initiated")
	return &Purchase{Ticket: paid, Quote: quote}, nil
}

// SetHoldTTL sets how long a ticket awaiting payment holds inventory.
func (s *CheckoutService) SetHoldTTL(ttl time.Duration) {
	if ttl > 0 {
		s.holdTTL = ttl
	}
}

func (s *CheckoutService) reserve(ctx context.Context, req PurchaseRequest, phone string) (*models.Ticket, Quote, error) {
	var (
		ticket *models.Ticket
		quote  Quote
	)

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		// 1. Lock the event row; concurrent purchases for the event queue here
		event, err := tx.Events().FindByIDForUpdate(ctx, req.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		// 2. Quantity held by recent tickets still awaiting payment
		now := s.now()
		reserved, err := tx.Tickets().ReservedQuantity(ctx, event.ID, now.Add(-s.holdTTL))
		if err != nil {
			return err
		}

		// 3. Inventory checks
		if err := CheckInventory(event, req.Quantity, reserved, now); err != nil {
			return err
		}

		// 4. Promo code, counting pending holds against max_uses
		var promo *models.PromoCode
		if strings.TrimSpace(req.PromoCode) != "" {
			promo, err = s.promos.validate(ctx, tx, req.PromoCode, event.ID)
			if err != nil {
				return err
			}
		}

		// 5. Price and create the ticket, awaiting payment
		quote = PriceTickets(event, req.Quantity, promo)

		ticketID := NewTicketID()
		qr, err := NewQRToken(s.qrSecret, ticketID, event.ID, now)
		if err != nil {
			return err
		}
		t := &models.Ticket{
			TicketID:   ticketID,
			EventID:    event.ID,
			UserID:     req.UserID,
			BuyerName:  req.BuyerName,
			BuyerEmail: req.BuyerEmail,
			BuyerPhone: phone,
			Quantity:   quote.Quantity,
			UnitPrice:  quote.UnitPrice,
			Subtotal:   quote.Subtotal,
			Discount:   quote.Discount,
			Amount:     quote.Total,
			QRToken:    qr,
			CreatedAt:  now,
		}
		if promo != nil {
			t.PromoCodeID = &promo.ID
		}
		t.SetState(models.StateAwaitingPayment)
		if err := tx.Tickets().Create(ctx, t); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	return ticket, quote, err
}

// Quote prices a purchase against current inventory without writing.
func (s *CheckoutService) Quote(ctx context.Context, eventID uint, quantity int, promoCode string) (*Quote, error) {
	now := s.now()
	event, reserved, err := s.inventory(ctx, eventID, now)
	if err != nil {
		return nil, err
	}
	if err := CheckInventory(event, quantity, reserved, now); err != nil {
		return nil, err
	}

	var promo *models.PromoCode
	if strings.TrimSpace(promoCode) != "" {
		if promo, err = s.promos.Validate(ctx, promoCode, eventID); err != nil {
			return nil, err
		}
	}
	q := PriceTickets(event, quantity, promo)
	return &q, nil
}

func (s *CheckoutService) Availability(ctx context.Context, eventID uint) (*Availability, error) {
	event, reserved, err := s.inventory(ctx, eventID, s.now())
	if err != nil {
		return nil, err
	}
	a := &Availability{Event: event, Reserved: reserved}
	if remaining, limited := event.Remaining(reserved); limited {
		a.Remaining = &remaining
	}
	return a, nil
}

func (s *CheckoutService) inventory(ctx context.Context, eventID uint, now time.Time) (*models.Event, int, error) {
	event, err := s.store.Events().FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrEventNotFound
		}
		return nil, 0, err
	}
	reserved, err := s.store.Tickets().ReservedQuantity(ctx, eventID, now.Add(-s.holdTTL))
	if err != nil {
		return nil, 0, fmt.Errorf("reserved quantity: %w", err)
	}
	return event, reserved, nil
}

// validateBuyer trims the buyer fields in place and returns the canonical
// phone number.
func validateBuyer(req *PurchaseRequest) (string, error) {
	req.BuyerName = strings.TrimSpace(req.BuyerName)
	if req.BuyerName == "" {
		return "", &ValidationError{Field: "buyer_name", Message: "is required"}
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.BuyerEmail))
	if err != nil {
		return "", &ValidationError{Field: "buyer_email", Message: "must be a valid email address"}
	}
	req.BuyerEmail = addr.Address
	if err := checkQuantity(req.Quantity); err != nil {
		return "", err
	}
	return NormalizePhone(req.BuyerPhone)
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrInventory):
		return "inventory"
	case errors.Is(err, ErrPromo):
		return "promo"
	case errors.Is(err, ErrEventNotFound):
		return "not_found"
	case errors.Is(err, ErrPaymentInitiationFailed):
		return "payment_failed"
	}
	return "error"
}
