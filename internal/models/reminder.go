package models

import "time"

type ReminderKind string

const (
	ReminderEvent    ReminderKind = "event_reminder"
	ReminderFeedback ReminderKind = "feedback_request"
)

// Reminder records that a scheduled email went out for a ticket. A ticket
// gets at most one reminder of each kind.
type Reminder struct {
	ID       uint         `gorm:"primaryKey" json:"-"`
	TicketID string       `gorm:"type:varchar(32);not null;uniqueIndex:idx_reminder_ticket_kind" json:"ticket_id"`
	Kind     ReminderKind `gorm:"type:varchar(32);not null;uniqueIndex:idx_reminder_ticket_kind" json:"kind"`
	SentAt   time.Time    `gorm:"not null" json:"sent_at"`
}

func (Reminder) TableName() string { return "event_reminders" }
