package service

import (
	"errors"
	"fmt"

	"github.com/yourdudeken/eventtik/internal/models"
)

var (
	ErrEventNotFound           = errors.New("event not found")
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrValidation              = errors.New("validation failed")
	ErrInventory               = errors.New("tickets unavailable")
	ErrPromo                   = errors.New("promo code rejected")
	ErrPaymentInitiationFailed = errors.New("payment failed, please retry")
	ErrPaymentTimeout          = errors.New("payment may still be processing")
	ErrUnknownCorrelation      = errors.New("no ticket for checkout request")
	ErrUnauthorized            = errors.New("not authorized")
	ErrStateConflict           = errors.New("ticket state conflict")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InventoryReason string

const (
	InvalidQuantity       InventoryReason = "invalid_quantity"
	DeadlinePassed        InventoryReason = "deadline_passed"
	SoldOut               InventoryReason = "sold_out"
	InsufficientRemaining InventoryReason = "insufficient_remaining"
)

type InventoryError struct {
	Reason    InventoryReason
	Remaining int
}

func (e *InventoryError) Error() string {
	switch e.Reason {
	case InvalidQuantity:
		return fmt.Sprintf("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	case DeadlinePassed:
		return "ticket sales have closed for this event"
	case SoldOut:
		return "event is sold out"
	case InsufficientRemaining:
		return fmt.Sprintf("only %d tickets remaining", e.Remaining)
	}
	return string(e.Reason)
}

func (e *InventoryError) Is(target error) bool { return target == ErrInventory }

type PromoReason string

const (
	PromoNotFound     PromoReason = "promo_not_found"
	PromoInactive     PromoReason = "promo_inactive"
	PromoExpired      PromoReason = "promo_expired"
	PromoLimitReached PromoReason = "promo_limit_reached"
)

type PromoError struct {
	Reason PromoReason
	Code   string
}

func (e *PromoError) Error() string {
	switch e.Reason {
	case PromoNotFound:
		return fmt.Sprintf("promo code %s is not valid for this event", e.Code)
	case PromoInactive:
		return fmt.Sprintf("promo code %s is not active", e.Code)
	case PromoExpired:
		return fmt.Sprintf("promo code %s has expired", e.Code)
	case PromoLimitReached:
		return fmt.Sprintf("promo code %s has reached its usage limit", e.Code)
	}
	return string(e.Reason)
}

func (e *PromoError) Is(target error) bool { return target == ErrPromo }

// StateConflictError reports the ticket's actual state after a transition lost a race
// or was attempted from the wrong state.
type StateConflictError struct {
	TicketID string
	Current  models.TicketState
}

func (e *StateConflictError) Error() string {
	if e.Current == models.StateCheckedIn {
		return fmt.Sprintf("ticket %s already checked in", e.TicketID)
	}
	return fmt.Sprintf("ticket %s is %s", e.TicketID, e.Current)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

type PaymentInitiationError struct {
	TicketID string
	Reason   string
	Err      error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("payment for ticket %s failed: %s", e.TicketID, e.Reason)
}

func (e *PaymentInitiationError) Is(target error) bool { return target == ErrPaymentInitiationFailed }

func (e *PaymentInitiationError) Unwrap() error { return e.Err }
