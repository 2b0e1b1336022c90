package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
)

// PromoLedger validates promo codes and records their use.
type PromoLedger struct {
	store   repository.Store
	holdTTL time.Duration
	now     func() time.Time
}

func NewPromoLedger(store repository.Store) *PromoLedger {
	return &PromoLedger{store: store, holdTTL: DefaultHoldTTL, now: time.Now}
}

// SetHoldTTL sets how long a purchase awaiting payment keeps its promo use.
func (l *PromoLedger) SetHoldTTL(ttl time.Duration) {
	if ttl > 0 {
		l.holdTTL = ttl
	}
}

// Validate checks code against the event. Recent purchases still awaiting
// payment count against max_uses.
func (l *PromoLedger) Validate(ctx context.Context, code string, eventID uint) (*models.PromoCode, error) {
	return l.validate(ctx, l.store, code, eventID)
}

func (l *PromoLedger) validate(ctx context.Context, tx repository.Store, code string, eventID uint) (*models.PromoCode, error) {
	code = models.NormalizePromoCode(code)
	if code == "" {
		return nil, &PromoError{Reason: PromoNotFound, Code: code}
	}

	promo, err := tx.Promos().FindByCode(ctx, eventID, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &PromoError{Reason: PromoNotFound, Code: code}
		}
		return nil, err
	}

	if !promo.IsActive {
		return nil, &PromoError{Reason: PromoInactive, Code: code}
	}
	now := l.now()
	if !promo.InWindow(now) {
		return nil, &PromoError{Reason: PromoExpired, Code: code}
	}
	if promo.MaxUses != nil {
		held, err := tx.Tickets().PendingPromoUses(ctx, promo.ID, now.Add(-l.holdTTL))
		if err != nil {
			return nil, err
		}
		if promo.CurrentUses+held >= *promo.MaxUses {
			return nil, &PromoError{Reason: PromoLimitReached, Code: code}
		}
	}
	return promo, nil
}

// RecordUse counts one application of the promo code inside tx.
func (l *PromoLedger) RecordUse(ctx context.Context, tx repository.Store, promoID uint) error {
	err := tx.Promos().RecordUse(ctx, promoID)
	switch {
	case errors.Is(err, repository.ErrUsageLimitReached):
		return &PromoError{Reason: PromoLimitReached}
	case errors.Is(err, repository.ErrNotFound):
		return &PromoError{Reason: PromoNotFound}
	}
	return err
}
