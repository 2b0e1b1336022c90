package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
)

// Caller is the authenticated user behind a request. Role is resolved per
// request and never cached beyond it.
type Caller struct {
	UserID string
	Role   models.Role
}

func (c Caller) owns(t *models.Ticket) bool {
	return c.UserID != "" && c.UserID == t.UserID
}

// LifecycleService performs the post-payment transitions of a ticket.
type LifecycleService struct {
	tickets repository.TicketRepository
	notify  *dispatcher
	now     func() time.Time
	log     *slog.Logger
}

func NewLifecycleService(store repository.Store, notifier notify.Notifier) *LifecycleService {
	return &LifecycleService{
		tickets: store.Tickets(),
		notify:  newDispatcher(notifier, store.Events()),
		now:     time.Now,
		log:     slog.With("component", "lifecycle"),
	}
}

// Get returns a ticket to its owner or to staff. Other callers see
// ErrTicketNotFound.
func (s *LifecycleService) Get(ctx context.Context, caller Caller, ticketID string) (*models.Ticket, error) {
	ticket, err := s.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !caller.owns(ticket) && !caller.Role.CanCheckIn() {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// Transfer hands an active ticket to recipientEmail. Only the owner or an
// admin may transfer.
func (s *LifecycleService) Transfer(ctx context.Context, caller Caller, ticketID, recipientEmail string) (*models.Ticket, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(recipientEmail))
	if err != nil {
		return nil, &ValidationError{Field: "recipient_email", Message: "must be a valid email address"}
	}

	ticket, err := s.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !caller.owns(ticket) && caller.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}

	now := s.now()
	token := NewTransferToken()
	to := strings.ToLower(addr.Address)
	updated, err := s.transition(ctx, ticketID, models.StateActive, repository.TicketPatch{
		State:         models.StateTransferred,
		TransferToken: &token,
		TransferredTo: &to,
		TransferredAt: &now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket transferred", "ticket_id", ticketID, "by", caller.UserID)
	s.notify.send(notify.TicketTransferred, updated, now)
	return updated, nil
}

// Revoke cancels an active ticket. Admin only; the role is checked before
// the ticket is read. Sold and promo counters are left as they are.
func (s *LifecycleService) Revoke(ctx context.Context, caller Caller, ticketID, reason string) (*models.Ticket, error) {
	if caller.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "is required"}
	}

	now := s.now()
	updated, err := s.transition(ctx, ticketID, models.StateActive, repository.TicketPatch{
		State:        models.StateRevoked,
		RevokedAt:    &now,
		RevokeReason: &reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket revoked", "ticket_id", ticketID, "by", caller.UserID, "reason", reason)
	s.notify.send(notify.TicketRevoked, updated, now)
	return updated, nil
}

func (s *LifecycleService) checkIn(ctx context.Context, ticketID string) (*models.Ticket, error) {
	now := s.now()
	updated, err := s.transition(ctx, ticketID, models.StateActive, repository.TicketPatch{
		State:       models.StateCheckedIn,
		CheckedInAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.notify.send(notify.TicketCheckedIn, updated, now)
	return updated, nil
}

// transition applies patch only if the ticket is still in from. On a miss the
// current state is re-read and reported.
func (s *LifecycleService) transition(ctx context.Context, ticketID string, from models.TicketState, patch repository.TicketPatch) (*models.Ticket, error) {
	updated, err := s.tickets.Update(ctx, ticketID, from, patch)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrTicketNotFound
	case errors.Is(err, repository.ErrStateConflict):
		current, ferr := s.find(ctx, ticketID)
		if ferr != nil {
			return nil, ferr
		}
		return current, &StateConflictError{TicketID: ticketID, Current: current.State()}
	}
	return nil, err
}

func (s *LifecycleService) find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByTicketID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}
