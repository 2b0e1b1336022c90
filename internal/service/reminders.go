package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
)

// ReminderConfig schedules the reminder job. Lead is how far ahead of an
// event its ticket holders are reminded; FeedbackDelay is how long after an
// event checked-in holders are asked for feedback.
type ReminderConfig struct {
	Interval      time.Duration
	Lead          time.Duration
	FeedbackDelay time.Duration
}

// ReminderRun counts what one pass did.
type ReminderRun struct {
	Events  int
	Sent    int
	Skipped int
	Failed  int
}

// Reminders emails day-before reminders to paid, valid ticket holders and
// feedback requests to holders who checked in. Each ticket gets at most one
// of each kind.
type Reminders struct {
	repo     repository.ReminderRepository
	notifier notify.Notifier
	cfg      ReminderConfig
	now      func() time.Time
	log      *slog.Logger
}

func NewReminders(repo repository.ReminderRepository, notifier notify.Notifier, cfg ReminderConfig) *Reminders {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Reminders{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		log:      slog.With("component", "reminders"),
	}
}

// RunOnce sends everything currently due.
func (r *Reminders) RunOnce(ctx context.Context) (ReminderRun, error) {
	now := r.now()
	var run ReminderRun

	err := errors.Join(
		r.sweep(ctx, &run, notify.EventReminder, models.ReminderEvent,
			now, now.Add(r.cfg.Lead), models.StateActive),
		r.sweep(ctx, &run, notify.FeedbackRequest, models.ReminderFeedback,
			now.Add(-2*r.cfg.FeedbackDelay), now.Add(-r.cfg.FeedbackDelay), models.StateCheckedIn),
	)
	if run.Sent > 0 || run.Failed > 0 {
		r.log.Info("reminders sent", "events", run.Events, "sent", run.Sent, "failed", run.Failed)
	}
	return run, err
}

func (r *Reminders) sweep(ctx context.Context, run *ReminderRun, kind notify.Kind, rk models.ReminderKind,
	from, to time.Time, state models.TicketState) error {
	events, err := r.repo.EventsBetween(ctx, from, to)
	if err != nil {
		return err
	}

	for i := range events {
		ev := &events[i]
		run.Events++
		tickets, err := r.repo.Recipients(ctx, ev.ID, state)
		if err != nil {
			r.log.Error("list reminder recipients", "event_id", ev.ID, "kind", rk, "error", err)
			continue
		}
		for _, t := range tickets {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.send(ctx, run, kind, rk, ev, t)
		}
	}
	return nil
}

// send claims the reminder before emailing and gives the claim back when
// the email fails, so the next pass retries it.
func (r *Reminders) send(ctx context.Context, run *ReminderRun, kind notify.Kind, rk models.ReminderKind,
	ev *models.Event, t models.Ticket) {
	now := r.now()
	claimed, err := r.repo.Claim(ctx, t.TicketID, rk, now)
	if err != nil {
		r.log.Error("claim reminder", "ticket_id", t.TicketID, "kind", rk, "error", err)
		run.Failed++
		return
	}
	if !claimed {
		run.Skipped++
		return
	}

	err = r.notifier.Notify(ctx, notify.Message{Kind: kind, Ticket: t, Event: ev, OccurredAt: now})
	if err != nil {
		run.Failed++
		metrics.RecordReminder(string(rk), "failed")
		r.log.Warn("reminder not delivered", "ticket_id", t.TicketID, "kind", rk, "error", err)
		if rerr := r.repo.Release(context.WithoutCancel(ctx), t.TicketID, rk); rerr != nil {
			r.log.Error("release reminder", "ticket_id", t.TicketID, "kind", rk, "error", rerr)
		}
		return
	}
	run.Sent++
	metrics.RecordReminder(string(rk), "sent")
}

// Run calls RunOnce every Interval until ctx is done.
func (r *Reminders) Run(ctx context.Context) {
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("reminder pass failed", "error", err)
		}
		if !sleep(ctx, r.cfg.Interval) {
			return
		}
	}
}
