package models

import (
	"errors"
	"fmt"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentCompleted || p == PaymentFailed
}

type TicketStatus string

const (
	StatusValid       TicketStatus = "valid"
	StatusCheckedIn   TicketStatus = "checked_in"
	StatusTransferred TicketStatus = "transferred"
	StatusRevoked     TicketStatus = "revoked"
)

// TicketState is the combined payment and admission state of a ticket. Only
// reachable (payment_status, status) pairs have a value.
type TicketState string

const (
	StateUnknown         TicketState = ""
	StateAwaitingPayment TicketState = "awaiting_payment"
	StatePaymentFailed   TicketState = "payment_failed"
	StateActive          TicketState = "active"
	StateCheckedIn       TicketState = "checked_in"
	StateTransferred     TicketState = "transferred"
	StateRevoked         TicketState = "revoked"
)

var ErrIllegalState = errors.New("illegal ticket state")

var stateColumns = map[TicketState]struct {
	payment PaymentStatus
	status  TicketStatus
}{
	StateAwaitingPayment: {PaymentPending, StatusValid},
	StatePaymentFailed:   {PaymentFailed, StatusValid},
	StateActive:          {PaymentCompleted, StatusValid},
	StateCheckedIn:       {PaymentCompleted, StatusCheckedIn},
	StateTransferred:     {PaymentCompleted, StatusTransferred},
	StateRevoked:         {PaymentCompleted, StatusRevoked},
}

var transitions = map[TicketState][]TicketState{
	StateAwaitingPayment: {StateActive, StatePaymentFailed},
	StateActive:          {StateCheckedIn, StateTransferred, StateRevoked},
}

// StateOf maps stored columns to a state, rejecting pairs the lifecycle can
// never produce (for example a pending ticket that is checked in).
func StateOf(p PaymentStatus, s TicketStatus) (TicketState, error) {
	for st, cols := range stateColumns {
		if cols.payment == p && cols.status == s {
			return st, nil
		}
	}
	return StateUnknown, fmt.Errorf("%w: payment_status=%q status=%q", ErrIllegalState, p, s)
}

func (s TicketState) Payment() PaymentStatus {
	return stateColumns[s].payment
}

func (s TicketState) Status() TicketStatus {
	return stateColumns[s].status
}

func (s TicketState) Valid() bool {
	_, ok := stateColumns[s]
	return ok
}

// CanTransition reports whether to is a permitted successor of from.
func CanTransition(from, to TicketState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state has no outgoing edges.
func (s TicketState) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}
