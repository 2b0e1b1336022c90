package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/models"
)

// publisher is satisfied by *rabbitmq.Publisher.
type publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Broker publishes every message on the tickets exchange, routed by kind.
type Broker struct {
	pub publisher
}

func NewBroker(pub publisher) *Broker {
	return &Broker{pub: pub}
}

type TicketEvent struct {
	TicketID      string               `json:"ticket_id"`
	EventID       uint                 `json:"event_id"`
	UserID        string               `json:"user_id,omitempty"`
	Quantity      int                  `json:"quantity"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Status        models.TicketStatus  `json:"status"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Simulated     bool                 `json:"simulated,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func (b *Broker) Notify(ctx context.Context, msg Message) error {
	t := msg.Ticket
	ev := TicketEvent{
		TicketID:      t.TicketID,
		EventID:       t.EventID,
		UserID:        t.UserID,
		Quantity:      t.Quantity,
		Amount:        t.Amount,
		PaymentStatus: t.PaymentStatus,
		Status:        t.Status,
		Simulated:     t.IsSimulated(),
		OccurredAt:    msg.OccurredAt,
	}
	if t.TransactionID != nil {
		ev.TransactionID = *t.TransactionID
	}
	return b.pub.Publish(ctx, string(msg.Kind), ev)
}
