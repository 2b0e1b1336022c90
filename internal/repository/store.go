package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in one unit of work.
type Store interface {
	Events() EventRepository
	Tickets() TicketRepository
	Promos() PromoRepository
	// Atomic runs fn inside a transaction. Repositories obtained from the
	// Store passed to fn share that transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Events() EventRepository   { return NewEventRepository(s.db) }
func (s *gormStore) Tickets() TicketRepository { return NewTicketRepository(s.db) }
func (s *gormStore) Promos() PromoRepository   { return NewPromoRepository(s.db) }

func (s *gormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
