package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Ticket, error)
	// Update applies patch only while the ticket is still in expected.
	// It returns ErrStateConflict when the stored state has moved on.
	Update(ctx context.Context, ticketID string, expected models.TicketState, patch TicketPatch) (*models.Ticket, error)
	// ReservedQuantity and PendingPromoUses only count tickets created
	// after since; older pending tickets no longer hold anything.
	ReservedQuantity(ctx context.Context, eventID uint, since time.Time) (int, error)
	PendingPromoUses(ctx context.Context, promoCodeID uint, since time.Time) (int, error)
	ListAwaitingPayment(ctx context.Context, limit int) ([]models.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("ticket_id = ?", ticket.TicketID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateTicketID
	}

	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTicketID
		}
		return err
	}
	return nil
}

func (r *ticketRepository) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		return nil, notFound(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutRequestID).
		First(&ticket).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticketID string, expected models.TicketState, patch TicketPatch) (*models.Ticket, error) {
	if !expected.Valid() {
		return nil, fmt.Errorf("%w: expected %q", models.ErrIllegalState, expected)
	}
	if patch.State != models.StateUnknown && !models.CanTransition(expected, patch.State) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, expected, patch.State)
	}

	cols := patch.Columns()
	if len(cols) == 0 {
		return r.FindByTicketID(ctx, ticketID)
	}

	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("ticket_id = ? AND payment_status = ? AND status = ?", ticketID, expected.Payment(), expected.Status()).
		Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByTicketID(ctx, ticketID); err != nil {
			return nil, err
		}
		return nil, ErrStateConflict
	}
	return r.FindByTicketID(ctx, ticketID)
}

// ReservedQuantity sums quantities of recent tickets still awaiting payment.
// These hold inventory until they complete, fail or age past since.
func (r *ticketRepository) ReservedQuantity(ctx context.Context, eventID uint, since time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("event_id = ? AND payment_status = ? AND created_at > ?", eventID, models.PaymentPending, since).
		Scan(&total).Error
	return int(total), err
}

func (r *ticketRepository) PendingPromoUses(ctx context.Context, promoCodeID uint, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("promo_code_id = ? AND payment_status = ? AND created_at > ?", promoCodeID, models.PaymentPending, since).
		Count(&count).Error
	return int(count), err
}

// ListAwaitingPayment returns pending tickets that have been accepted by the
// gateway, oldest first.
func (r *ticketRepository) ListAwaitingPayment(ctx context.Context, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := r.db.WithContext(ctx).
		Where("payment_status = ? AND checkout_request_id IS NOT NULL", models.PaymentPending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
