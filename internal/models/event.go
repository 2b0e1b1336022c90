package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TicketType string

const (
	TicketTypeOpen  TicketType = "open"
	TicketTypeFixed TicketType = "fixed"
)

var (
	ErrInvalidTicketType  = errors.New("ticket_type must be open or fixed")
	ErrMaxTicketsRequired = errors.New("max_tickets is required for fixed events")
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrDeadlineAfterEvent = errors.New("ticket_deadline must precede the event date")
)

// Event is the read model of an event owned by event management. The only
// column written here is TicketsSold.
type Event struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"not null" json:"title"`
	CreatorID      string          `gorm:"index" json:"creator_id"`
	Venue          string          `json:"venue"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	TicketType     TicketType      `gorm:"type:varchar(10);not null;default:'open'" json:"ticket_type"`
	MaxTickets     *int            `json:"max_tickets,omitempty"`
	TicketsSold    int             `gorm:"not null;default:0" json:"tickets_sold"`
	TicketDeadline *time.Time      `json:"ticket_deadline,omitempty"`
	EventDate      time.Time       `gorm:"not null" json:"event_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (e *Event) Validate() error {
	switch e.TicketType {
	case TicketTypeOpen, TicketTypeFixed:
	default:
		return ErrInvalidTicketType
	}
	if e.TicketType == TicketTypeFixed && (e.MaxTickets == nil || *e.MaxTickets < 0) {
		return ErrMaxTicketsRequired
	}
	if e.Price.IsNegative() {
		return ErrNegativePrice
	}
	if e.TicketType == TicketTypeOpen && e.TicketDeadline != nil && !e.EventDate.IsZero() &&
		!e.TicketDeadline.Before(e.EventDate) {
		return ErrDeadlineAfterEvent
	}
	return nil
}

// Remaining returns the number of tickets still for sale after subtracting
// sold and reserved quantities. The boolean is false for open events.
func (e *Event) Remaining(reserved int) (int, bool) {
	if e.TicketType != TicketTypeFixed || e.MaxTickets == nil {
		return 0, false
	}
	left := *e.MaxTickets - e.TicketsSold - reserved
	if left < 0 {
		left = 0
	}
	return left, true
}
