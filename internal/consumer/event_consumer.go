package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yourdudeken/eventtik/internal/models"
)

// eventStore is the part of repository.EventRepository the consumer writes to.
type eventStore interface {
	Upsert(ctx context.Context, event *models.Event) error
}

// acknowledger is the part of amqp.Delivery the consumer settles.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type EventConsumer struct {
	events eventStore
	log    *slog.Logger
}

func NewEventConsumer(events eventStore) *EventConsumer {
	return &EventConsumer{events: events, log: slog.With("component", "consumer")}
}

// Start syncs events published by event management until msgs is closed.
func (ec *EventConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			ec.handle(ctx, msg.Body, &msg)
		}
		ec.log.Info("channel closed, stopping consumer")
	}()
}

func (ec *EventConsumer) handle(ctx context.Context, body []byte, ack acknowledger) {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		ec.log.Warn("failed to unmarshal event", "error", err)
		_ = ack.Nack(false, false)
		return
	}

	if event.ID == 0 {
		ec.log.Warn("event without id dropped")
		_ = ack.Nack(false, false)
		return
	}
	if err := event.Validate(); err != nil {
		ec.log.Warn("invalid event dropped", "event_id", event.ID, "error", err)
		_ = ack.Nack(false, false)
		return
	}

	if err := ec.events.Upsert(ctx, &event); err != nil {
		ec.log.Error("failed to upsert event", "event_id", event.ID, "error", err)
		_ = ack.Nack(false, true)
		return
	}

	ec.log.Info("synced event", "event_id", event.ID, "title", event.Title)
	_ = ack.Ack(false)
}
