package repository

import (
	"context"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderRepository finds reminder recipients and de-duplicates sends.
type ReminderRepository interface {
	EventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error)
	Recipients(ctx context.Context, eventID uint, states ...models.TicketState) ([]models.Ticket, error)
	// Claim records the reminder. It returns false when the ticket already
	// has a reminder of that kind.
	Claim(ctx context.Context, ticketID string, kind models.ReminderKind, at time.Time) (bool, error)
	Release(ctx context.Context, ticketID string, kind models.ReminderKind) error
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

// EventsBetween returns events whose date falls in [from, to).
func (r *reminderRepository) EventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("event_date >= ? AND event_date < ?", from, to).
		Order("event_date ASC").
		Find(&events).Error
	return events, err
}

func (r *reminderRepository) Recipients(ctx context.Context, eventID uint, states ...models.TicketState) ([]models.Ticket, error) {
	if len(states) == 0 {
		return nil, nil
	}
	pairs := make([][]any, 0, len(states))
	for _, s := range states {
		pairs = append(pairs, []any{s.Payment(), s.Status()})
	}

	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("(payment_status, status) IN ?", pairs).
		Order("created_at ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *reminderRepository) Claim(ctx context.Context, ticketID string, kind models.ReminderKind, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Reminder{TicketID: ticketID, Kind: kind, SentAt: at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reminderRepository) Release(ctx context.Context, ticketID string, kind models.ReminderKind) error {
	return r.db.WithContext(ctx).
		Where("ticket_id = ? AND kind = ?", ticketID, kind).
		Delete(&models.Reminder{}).Error
}
