package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateTicketID = errors.New("ticket id already exists")
	ErrStateConflict     = errors.New("ticket state changed concurrently")
	ErrIllegalTransition = errors.New("illegal ticket state transition")
	ErrCapacityExceeded  = errors.New("event capacity exceeded")
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
