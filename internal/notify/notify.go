// Package notify delivers ticket lifecycle notifications to buyers and to
// other services.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
)

type Kind string

const (
	TicketPaid          Kind = "ticket.paid"
	TicketPaymentFailed Kind = "ticket.payment_failed"
	TicketCheckedIn     Kind = "ticket.checked_in"
	TicketTransferred   Kind = "ticket.transferred"
	TicketRevoked       Kind = "ticket.revoked"

	EventReminder   Kind = "event.reminder"
	FeedbackRequest Kind = "event.feedback_request"
)

type Message struct {
	Kind       Kind
	Ticket     models.Ticket
	Event      *models.Event
	OccurredAt time.Time
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Fanout delivers a message to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
