package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
)

const notifyTimeout = 15 * time.Second

// dispatcher sends notifications in the background. Failures are logged and
// never affect ticket state.
type dispatcher struct {
	notifier notify.Notifier
	events   repository.EventRepository
	log      *slog.Logger
}

func newDispatcher(n notify.Notifier, events repository.EventRepository) *dispatcher {
	if n == nil {
		n = notify.Nop{}
	}
	return &dispatcher{notifier: n, events: events, log: slog.With("component", "notify")}
}

func (d *dispatcher) send(kind notify.Kind, ticket *models.Ticket, at time.Time) {
	msg := notify.Message{Kind: kind, Ticket: *ticket, OccurredAt: at}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if d.events != nil {
			if ev, err := d.events.FindByID(ctx, ticket.EventID); err == nil {
				msg.Event = ev
			}
		}
		if err := d.notifier.Notify(ctx, msg); err != nil {
			d.log.Warn("notification failed", "kind", kind, "ticket_id", ticket.TicketID, "error", err)
		}
	}()
}
