package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

func NewPostgresDB(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	slog.Info("database ready", "component", "database")
	return db, nil
}

// Migrate creates tables and the constraints AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Event{}, &models.PromoCode{}, &models.Ticket{}, &models.UserRole{}, &models.Reminder{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_pending
		ON tickets (event_id)
		WHERE payment_status = 'pending'`,
		`DO $$ BEGIN
			ALTER TABLE events ADD CONSTRAINT chk_events_sold
			CHECK (ticket_type <> 'fixed' OR tickets_sold <= max_tickets);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`DO $$ BEGIN
			ALTER TABLE promo_codes ADD CONSTRAINT chk_promo_uses
			CHECK (max_uses IS NULL OR current_uses <= max_uses);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate constraint: %w", err)
		}
	}
	return nil
}
