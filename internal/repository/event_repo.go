package repository

import (
	"context"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Event, error)
	IncrementSold(ctx context.Context, id uint, quantity int) error
	Upsert(ctx context.Context, event *models.Event) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// FindByIDForUpdate acquires a row-level lock on the event within the current transaction.
func (r *eventRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// IncrementSold adds quantity to tickets_sold. For fixed events the limit is
// checked in the same statement; ErrCapacityExceeded means nothing changed.
func (r *eventRepository) IncrementSold(ctx context.Context, id uint, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Where("ticket_type <> ? OR tickets_sold + ? <= max_tickets", models.TicketTypeFixed, quantity).
		UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrCapacityExceeded
	}
	return nil
}

// Upsert stores an event published by event management. tickets_sold is
// owned by this service and is never overwritten.
func (r *eventRepository) Upsert(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "creator_id", "venue", "price", "ticket_type",
			"max_tickets", "ticket_deadline", "event_date", "updated_at",
		}),
	}).Omit("tickets_sold").Create(event).Error
}
