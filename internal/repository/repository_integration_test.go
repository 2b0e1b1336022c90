//go:build integration

package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestTicketRepository_ConditionalUpdate(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 10, 0, 1000)
	tickets := repository.NewTicketRepository(testDB)
	ctx := testContext(t)

	require.NoError(t, tickets.Create(ctx, newPendingTicket("TKT-AAAAAAAAAAAA", event.ID, 2)))

	paid, err := tickets.Update(ctx, "TKT-AAAAAAAAAAAA", models.StateAwaitingPayment, repository.TicketPatch{
		State:         models.StateActive,
		TransactionID: strPtr("NLJ7RT61SV"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, paid.State())
	assert.Equal(t, "NLJ7RT61SV", *paid.TransactionID)

	_, err = tickets.Update(ctx, "TKT-AAAAAAAAAAAA", models.StateAwaitingPayment, repository.TicketPatch{
		State:         models.StatePaymentFailed,
		FailureReason: strPtr("late failure"),
	})
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	stored, err := tickets.FindByTicketID(ctx, "TKT-AAAAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, stored.State())
	assert.Empty(t, stored.FailureReason)

	_, err = tickets.Update(ctx, "TKT-MISSING00000", models.StateAwaitingPayment, repository.TicketPatch{State: models.StateActive})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = tickets.Update(ctx, "TKT-AAAAAAAAAAAA", models.StateActive, repository.TicketPatch{State: models.StateAwaitingPayment})
	assert.ErrorIs(t, err, repository.ErrIllegalTransition)
}

func TestTicketRepository_DuplicateTicketID(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 10, 0, 1000)
	tickets := repository.NewTicketRepository(testDB)

	require.NoError(t, tickets.Create(testContext(t), newPendingTicket("TKT-BBBBBBBBBBBB", event.ID, 1)))

	dup := newPendingTicket("TKT-BBBBBBBBBBBB", event.ID, 1)
	dup.QRToken = "TKT-BBBBBBBBBBBB-other"
	assert.ErrorIs(t, tickets.Create(testContext(t), dup), repository.ErrDuplicateTicketID)
}

func TestTicketRepository_PendingHolds(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 10, 0, 1000)
	promo := createPromo(t, event.ID, "EARLY", nil)
	tickets := repository.NewTicketRepository(testDB)
	ctx := testContext(t)

	a := newPendingTicket("TKT-CCCCCCCCCCC1", event.ID, 2)
	a.PromoCodeID = &promo.ID
	a.CheckoutRequestID = strPtr("ws_CO_1")
	b := newPendingTicket("TKT-CCCCCCCCCCC2", event.ID, 3)
	c := newPendingTicket("TKT-CCCCCCCCCCC3", event.ID, 4)
	c.SetState(models.StatePaymentFailed)
	stale := newPendingTicket("TKT-CCCCCCCCCCC4", event.ID, 1)
	stale.PromoCodeID = &promo.ID
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	for _, tk := range []*models.Ticket{a, b, c, stale} {
		require.NoError(t, tickets.Create(ctx, tk))
	}
	since := time.Now().Add(-time.Hour)

	reserved, err := tickets.ReservedQuantity(ctx, event.ID, since)
	require.NoError(t, err)
	assert.Equal(t, 5, reserved)

	held, err := tickets.PendingPromoUses(ctx, promo.ID, since)
	require.NoError(t, err)
	assert.Equal(t, 1, held)

	reserved, err = tickets.ReservedQuantity(ctx, event.ID, time.Now().Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 6, reserved)

	pending, err := tickets.ListAwaitingPayment(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "TKT-CCCCCCCCCCC1", pending[0].TicketID)

	found, err := tickets.FindByCheckoutRequestID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "TKT-CCCCCCCCCCC1", found.TicketID)
}

func TestEventRepository_IncrementSoldRespectsCapacity(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 3, 2, 1000)
	events := repository.NewEventRepository(testDB)
	ctx := testContext(t)

	require.NoError(t, events.IncrementSold(ctx, event.ID, 1))
	assert.ErrorIs(t, events.IncrementSold(ctx, event.ID, 1), repository.ErrCapacityExceeded)
	assert.ErrorIs(t, events.IncrementSold(ctx, 9999, 1), repository.ErrNotFound)

	stored, err := events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TicketsSold)
}

func TestEventRepository_UpsertKeepsTicketsSold(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 100, 40, 1000)
	events := repository.NewEventRepository(testDB)
	ctx := testContext(t)

	update := *event
	update.Title = "Nairobi Jazz Night (Late Show)"
	update.TicketsSold = 0
	require.NoError(t, events.Upsert(ctx, &update))

	stored, err := events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nairobi Jazz Night (Late Show)", stored.Title)
	assert.Equal(t, 40, stored.TicketsSold)
}

func TestPromoRepository_RecordUseLimit(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 100, 0, 1000)
	maxUses := 1
	promo := createPromo(t, event.ID, "ONCE", &maxUses)
	promos := repository.NewPromoRepository(testDB)
	ctx := testContext(t)

	require.NoError(t, promos.RecordUse(ctx, promo.ID))
	assert.ErrorIs(t, promos.RecordUse(ctx, promo.ID), repository.ErrUsageLimitReached)
	assert.ErrorIs(t, promos.RecordUse(ctx, 9999), repository.ErrNotFound)

	found, err := promos.FindByCode(ctx, event.ID, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, found.CurrentUses)
}

func TestRoleRepository_FindRole(t *testing.T) {
	cleanTables()
	require.NoError(t, testDB.Create(&[]models.UserRole{
		{UserID: "u1", Role: models.RoleUser},
		{UserID: "u1", Role: models.RoleStaff},
		{UserID: "u2", Role: models.RoleUser},
	}).Error)
	roles := repository.NewRoleRepository(testDB)

	role, err := roles.FindRole(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, role)

	role, err = roles.FindRole(testContext(t), "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, role)
}

func TestReminderRepository(t *testing.T) {
	cleanTables()
	event := createFixedEvent(t, 10, 0, 1000)
	tickets := repository.NewTicketRepository(testDB)
	reminders := repository.NewReminderRepository(testDB)
	ctx := testContext(t)

	paid := newPendingTicket("TKT-DDDDDDDDDDD1", event.ID, 1)
	paid.SetState(models.StateActive)
	entered := newPendingTicket("TKT-DDDDDDDDDDD2", event.ID, 1)
	entered.SetState(models.StateCheckedIn)
	waiting := newPendingTicket("TKT-DDDDDDDDDDD3", event.ID, 1)
	for _, tk := range []*models.Ticket{paid, entered, waiting} {
		require.NoError(t, tickets.Create(ctx, tk))
	}

	events, err := reminders.EventsBetween(ctx, event.EventDate.Add(-time.Hour), event.EventDate.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)

	events, err = reminders.EventsBetween(ctx, event.EventDate.Add(time.Second), event.EventDate.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)

	got, err := reminders.Recipients(ctx, event.ID, models.StateActive)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TKT-DDDDDDDDDDD1", got[0].TicketID)

	got, err = reminders.Recipients(ctx, event.ID, models.StateActive, models.StateCheckedIn)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	ok, err := reminders.Claim(ctx, paid.TicketID, models.ReminderEvent, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = reminders.Claim(ctx, paid.TicketID, models.ReminderEvent, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second claim of the same kind")
	ok, err = reminders.Claim(ctx, paid.TicketID, models.ReminderFeedback, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reminders.Release(ctx, paid.TicketID, models.ReminderEvent))
	ok, err = reminders.Claim(ctx, paid.TicketID, models.ReminderEvent, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}
