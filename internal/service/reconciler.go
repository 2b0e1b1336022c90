package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
)

const resumeBatch = 500

// PollConfig bounds how long a pending payment is chased before giving up.
type PollConfig struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
	Backoff      float64
	MaxInterval  time.Duration
}

// window is an upper bound on how long one tracker can run, plus slack.
func (c PollConfig) window() time.Duration {
	total := c.InitialDelay
	next := c.Interval
	for i := 0; i < c.MaxAttempts; i++ {
		total += next
		next = c.next(next)
	}
	return total + time.Minute
}

func (c PollConfig) next(d time.Duration) time.Duration {
	if c.Backoff > 1 {
		d = time.Duration(float64(d) * c.Backoff)
	}
	if c.MaxInterval > 0 && d > c.MaxInterval {
		d = c.MaxInterval
	}
	return d
}

type refresher interface {
	Refresh(ctx context.Context, ticketID string) (*models.Ticket, error)
	Status(ctx context.Context, ticketID string) (*models.Ticket, error)
}

// Locker grants a cross-process lease. A nil Locker leaves only the
// in-process guard.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Reconciler chases tickets awaiting payment on the server side so that a
// lost callback or a disconnected buyer still ends in a terminal state.
type Reconciler struct {
	payments refresher
	tickets  repository.TicketRepository
	locker   Locker
	cfg      PollConfig
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
}

func NewReconciler(payments refresher, tickets repository.TicketRepository, locker Locker, cfg PollConfig) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		payments: payments,
		tickets:  tickets,
		locker:   locker,
		cfg:      cfg,
		log:      slog.With("component", "reconciler"),
		ctx:      ctx,
		cancel:   cancel,
		running:  make(map[string]struct{}),
	}
}

// Track starts a background tracker for ticketID. It returns false if one is
// already running in this process or the reconciler has stopped.
func (r *Reconciler) Track(ticketID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return false
	}
	if _, ok := r.running[ticketID]; ok {
		return false
	}
	r.running[ticketID] = struct{}{}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.forget(ticketID)
		r.run(r.ctx, ticketID)
	}()
	return true
}

func (r *Reconciler) forget(ticketID string) {
	r.mu.Lock()
	delete(r.running, ticketID)
	r.mu.Unlock()
}

func (r *Reconciler) run(ctx context.Context, ticketID string) {
	log := r.log.With("ticket_id", ticketID)

	if r.locker != nil {
		release, ok, err := r.locker.Acquire(ctx, "reconcile:"+ticketID, r.cfg.window())
		if err != nil {
			log.Warn("lease unavailable, tracking locally", "error", err)
		} else if !ok {
			log.Debug("ticket tracked by another instance")
			return
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("lease release failed", "error", err)
				}
			}()
		}
	}

	metrics.ReconcilerStarted()
	defer metrics.ReconcilerStopped()

	wait := r.cfg.InitialDelay
	interval := r.cfg.Interval
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if !sleep(ctx, wait) {
			return
		}

		ticket, err := r.payments.Refresh(ctx, ticketID)
		switch {
		case errors.Is(err, ErrTicketNotFound):
			log.Warn("tracked ticket disappeared")
			return
		case err != nil:
			log.Warn("reconcile attempt failed", "attempt", attempt, "error", err)
		case ticket.State() != models.StateAwaitingPayment:
			log.Info("payment reconciled", "attempt", attempt, "state", ticket.State())
			return
		}

		wait = interval
		interval = r.cfg.next(interval)
	}

	metrics.RecordReconcilerTimeout()
	log.Warn("payment still pending after poll budget", "attempts", r.cfg.MaxAttempts)
}

// Await blocks the caller on the store until the ticket leaves
// awaiting_payment or the poll budget runs out, which returns
// ErrPaymentTimeout together with the last observed ticket.
func (r *Reconciler) Await(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := r.payments.Status(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State() != models.StateAwaitingPayment {
		return ticket, nil
	}

	wait := r.cfg.InitialDelay
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if !sleep(ctx, wait) {
			return ticket, ctx.Err()
		}
		ticket, err = r.payments.Status(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if ticket.State() != models.StateAwaitingPayment {
			return ticket, nil
		}
		wait = r.cfg.Interval
	}
	return ticket, ErrPaymentTimeout
}

// Resume starts trackers for every correlated ticket still awaiting payment.
func (r *Reconciler) Resume(ctx context.Context) (int, error) {
	pending, err := r.tickets.ListAwaitingPayment(ctx, resumeBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range pending {
		if t.CheckoutRequestID == nil {
			continue
		}
		if r.Track(t.TicketID) {
			n++
		}
	}
	r.log.Info("resumed payment tracking", "tickets", n)
	return n, nil
}

// Stop cancels all trackers and waits for them to exit.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
