package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/internal/models"
)

type Classification string

const (
	InvalidTicket    Classification = "invalid_ticket"
	Revoked          Classification = "revoked"
	TransferredAway  Classification = "transferred_away"
	AlreadyCheckedIn Classification = "already_checked_in"
	ReadyToCheckIn   Classification = "ready_to_check_in"
)

// ScanResult is what door staff see after a scan. Ticket is nil when the
// payload did not resolve to a ticket.
type ScanResult struct {
	TicketID       string
	Classification Classification
	Ticket         *models.Ticket
}

// Classify maps a ticket to its check-in classification. Unpaid tickets are
// invalid whatever their status column says.
func Classify(t *models.Ticket) Classification {
	if t == nil || t.PaymentStatus != models.PaymentCompleted {
		return InvalidTicket
	}
	switch t.Status {
	case models.StatusRevoked:
		return Revoked
	case models.StatusTransferred:
		return TransferredAway
	case models.StatusCheckedIn:
		return AlreadyCheckedIn
	case models.StatusValid:
		return ReadyToCheckIn
	}
	return InvalidTicket
}

type CheckInService struct {
	lifecycle *LifecycleService
	log       *slog.Logger
}

func NewCheckInService(lifecycle *LifecycleService) *CheckInService {
	return &CheckInService{lifecycle: lifecycle, log: slog.With("component", "checkin")}
}

// Scan resolves a scanned payload or typed ticket id and classifies it. It
// never changes state.
func (s *CheckInService) Scan(ctx context.Context, caller Caller, payload string) (*ScanResult, error) {
	if !caller.Role.CanCheckIn() {
		return nil, ErrUnauthorized
	}

	ticket, err := s.resolve(ctx, payload)
	if errors.Is(err, ErrTicketNotFound) {
		metrics.RecordCheckIn(string(InvalidTicket))
		ticketID, _ := ParseScanPayload(payload)
		return &ScanResult{TicketID: ticketID, Classification: InvalidTicket}, nil
	}
	if err != nil {
		return nil, err
	}

	c := Classify(ticket)
	metrics.RecordCheckIn(string(c))
	return &ScanResult{TicketID: ticket.TicketID, Classification: c, Ticket: ticket}, nil
}

// Confirm checks a ticket in. The state is re-read at this instant; a ticket
// that is not ready, or that a concurrent confirmation already took, yields a
// *StateConflictError carrying the current state.
func (s *CheckInService) Confirm(ctx context.Context, caller Caller, payload string) (*models.Ticket, error) {
	if !caller.Role.CanCheckIn() {
		return nil, ErrUnauthorized
	}

	ticket, err := s.resolve(ctx, payload)
	if err != nil {
		return nil, err
	}
	if Classify(ticket) != ReadyToCheckIn {
		return ticket, &StateConflictError{TicketID: ticket.TicketID, Current: ticket.State()}
	}

	updated, err := s.lifecycle.checkIn(ctx, ticket.TicketID)
	if err != nil {
		var conflict *StateConflictError
		if errors.As(err, &conflict) {
			s.log.Info("check-in lost to concurrent confirmation", "ticket_id", ticket.TicketID, "current", conflict.Current)
		}
		return updated, err
	}

	metrics.RecordCheckIn("confirmed")
	s.log.Info("ticket checked in", "ticket_id", updated.TicketID, "event_id", updated.EventID, "by", caller.UserID)
	return updated, nil
}

// resolve finds the ticket behind payload. A full QR payload must match the
// stored token exactly.
func (s *CheckInService) resolve(ctx context.Context, payload string) (*models.Ticket, error) {
	ticketID, full := ParseScanPayload(payload)
	if ticketID == "" {
		return nil, ErrTicketNotFound
	}
	ticket, err := s.lifecycle.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if full && !tokensEqual(ticket.QRToken, strings.TrimSpace(payload)) {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}
