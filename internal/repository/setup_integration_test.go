//go:build integration

package repository_test

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/pkg/database"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "eventtik_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	dropTables()
	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	code := m.Run()

	dropTables()
	os.Exit(code)
}

func dropTables() {
	testDB.Exec("DROP TABLE IF EXISTS event_reminders, tickets, promo_codes, events, user_roles")
}

func cleanTables() {
	testDB.Exec("TRUNCATE event_reminders, tickets, promo_codes, events, user_roles RESTART IDENTITY")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var eventIDCounter atomic.Uint32

func createFixedEvent(t *testing.T, maxTickets, sold int, price int64) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:          uint(eventIDCounter.Add(1)),
		Title:       "Nairobi Jazz Night",
		CreatorID:   "creator-1",
		Price:       decimal.NewFromInt(price),
		TicketType:  models.TicketTypeFixed,
		MaxTickets:  &maxTickets,
		TicketsSold: sold,
		EventDate:   time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, testDB.Create(event).Error)
	return event
}

func createPromo(t *testing.T, eventID uint, code string, maxUses *int) *models.PromoCode {
	t.Helper()
	promo := &models.PromoCode{
		EventID:       eventID,
		Code:          code,
		DiscountType:  models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MaxUses:       maxUses,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(promo).Error)
	return promo
}

func newPendingTicket(id string, eventID uint, qty int) *models.Ticket {
	t := &models.Ticket{
		TicketID:   id,
		EventID:    eventID,
		UserID:     "user-1",
		BuyerName:  "Wanjiru",
		BuyerEmail: "wanjiru@example.com",
		BuyerPhone: "254712345678",
		Quantity:   qty,
		UnitPrice:  decimal.NewFromInt(1000),
		Subtotal:   decimal.NewFromInt(int64(1000 * qty)),
		Amount:     decimal.NewFromInt(int64(1000 * qty)),
		QRToken:    fmt.Sprintf("%s-%d-0123456789abcdef", id, eventID),
	}
	t.SetState(models.StateAwaitingPayment)
	return t
}
