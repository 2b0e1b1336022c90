package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
)

// --- In-memory Store ---

type memData struct {
	events  map[uint]models.Event
	tickets map[string]models.Ticket
	promos  map[uint]models.PromoCode
	nextID  uint
}

func (d *memData) clone() *memData {
	c := &memData{
		events:  make(map[uint]models.Event, len(d.events)),
		tickets: make(map[string]models.Ticket, len(d.tickets)),
		promos:  make(map[uint]models.PromoCode, len(d.promos)),
		nextID:  d.nextID,
	}
	for k, v := range d.events {
		c.events[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.promos {
		c.promos[k] = v
	}
	return c
}

// memStore mimics the gorm store: every call outside Atomic is its own
// transaction and Atomic rolls back on error.
type memStore struct {
	root *memRoot
	tx   *memData
}

type memRoot struct {
	mu   sync.Mutex
	data *memData
}

func newMemStore() *memStore {
	return &memStore{root: &memRoot{data: &memData{
		events:  map[uint]models.Event{},
		tickets: map[string]models.Ticket{},
		promos:  map[uint]models.PromoCode{},
		nextID:  1,
	}}}
}

func (s *memStore) Events() repository.EventRepository   { return memEvents{s} }
func (s *memStore) Tickets() repository.TicketRepository { return memTickets{s} }
func (s *memStore) Promos() repository.PromoRepository   { return memPromos{s} }

func (s *memStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	work := s.root.data.clone()
	if err := fn(&memStore{root: s.root, tx: work}); err != nil {
		return err
	}
	s.root.data = work
	return nil
}

// with runs fn against the transaction data, or as a one-statement
// transaction when called outside Atomic.
func (s *memStore) with(fn func(d *memData) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.data)
}

func (s *memStore) addEvent(e models.Event) *models.Event {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.root.data.nextID
		s.root.data.nextID++
	}
	s.root.data.events[e.ID] = e
	return &e
}

func (s *memStore) addPromo(p models.PromoCode) *models.PromoCode {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.root.data.nextID
		s.root.data.nextID++
	}
	s.root.data.promos[p.ID] = p
	return &p
}

func (s *memStore) addTicket(t models.Ticket) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	s.root.data.tickets[t.TicketID] = t
}

func (s *memStore) event(id uint) models.Event {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return s.root.data.events[id]
}

func (s *memStore) promo(id uint) models.PromoCode {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return s.root.data.promos[id]
}

func (s *memStore) ticket(id string) *models.Ticket {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	t := s.root.data.tickets[id]
	return &t
}

func (s *memStore) ticketCount() int {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return len(s.root.data.tickets)
}

type memEvents struct{ s *memStore }

func (r memEvents) FindByID(_ context.Context, id uint) (*models.Event, error) {
	var out *models.Event
	err := r.s.with(func(d *memData) error {
		e, ok := d.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r memEvents) FindByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	return r.FindByID(ctx, id)
}

func (r memEvents) IncrementSold(_ context.Context, id uint, quantity int) error {
	return r.s.with(func(d *memData) error {
		e, ok := d.events[id]
		if !ok {
			return repository.ErrNotFound
		}
		if e.TicketType == models.TicketTypeFixed && e.MaxTickets != nil && e.TicketsSold+quantity > *e.MaxTickets {
			return repository.ErrCapacityExceeded
		}
		e.TicketsSold += quantity
		d.events[id] = e
		return nil
	})
}

func (r memEvents) Upsert(_ context.Context, event *models.Event) error {
	return r.s.with(func(d *memData) error {
		e := *event
		if old, ok := d.events[e.ID]; ok {
			e.TicketsSold = old.TicketsSold
		}
		d.events[e.ID] = e
		return nil
	})
}

type memTickets struct{ s *memStore }

func (r memTickets) Create(_ context.Context, t *models.Ticket) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.tickets[t.TicketID]; ok {
			return repository.ErrDuplicateTicketID
		}
		t.ID = d.nextID
		d.nextID++
		d.tickets[t.TicketID] = *t
		return nil
	})
}

func (r memTickets) FindByTicketID(_ context.Context, ticketID string) (*models.Ticket, error) {
	var out *models.Ticket
	err := r.s.with(func(d *memData) error {
		t, ok := d.tickets[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r memTickets) FindByCheckoutRequestID(_ context.Context, id string) (*models.Ticket, error) {
	var out *models.Ticket
	err := r.s.with(func(d *memData) error {
		for _, t := range d.tickets {
			if t.CheckoutRequestID != nil && *t.CheckoutRequestID == id {
				t := t
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memTickets) Update(_ context.Context, ticketID string, expected models.TicketState, patch repository.TicketPatch) (*models.Ticket, error) {
	if patch.State != models.StateUnknown && !models.CanTransition(expected, patch.State) {
		return nil, repository.ErrIllegalTransition
	}
	var out *models.Ticket
	err := r.s.with(func(d *memData) error {
		t, ok := d.tickets[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		if t.State() != expected {
			return repository.ErrStateConflict
		}
		patch.Apply(&t)
		t.UpdatedAt = time.Now()
		d.tickets[ticketID] = t
		out = &t
		return nil
	})
	return out, err
}

func (r memTickets) ReservedQuantity(_ context.Context, eventID uint, since time.Time) (int, error) {
	n := 0
	err := r.s.with(func(d *memData) error {
		for _, t := range d.tickets {
			if t.EventID == eventID && t.PaymentStatus == models.PaymentPending && t.CreatedAt.After(since) {
				n += t.Quantity
			}
		}
		return nil
	})
	return n, err
}

func (r memTickets) PendingPromoUses(_ context.Context, promoID uint, since time.Time) (int, error) {
	n := 0
	err := r.s.with(func(d *memData) error {
		for _, t := range d.tickets {
			if t.PromoCodeID != nil && *t.PromoCodeID == promoID && t.PaymentStatus == models.PaymentPending && t.CreatedAt.After(since) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memTickets) ListAwaitingPayment(_ context.Context, limit int) ([]models.Ticket, error) {
	var out []models.Ticket
	err := r.s.with(func(d *memData) error {
		for _, t := range d.tickets {
			if t.PaymentStatus == models.PaymentPending && t.CheckoutRequestID != nil {
				out = append(out, t)
			}
		}
		return nil
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type memPromos struct{ s *memStore }

func (r memPromos) FindByCode(_ context.Context, eventID uint, code string) (*models.PromoCode, error) {
	var out *models.PromoCode
	err := r.s.with(func(d *memData) error {
		for _, p := range d.promos {
			if p.EventID == eventID && p.Code == code {
				p := p
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memPromos) RecordUse(_ context.Context, id uint) error {
	return r.s.with(func(d *memData) error {
		p, ok := d.promos[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
			return repository.ErrUsageLimitReached
		}
		p.CurrentUses++
		d.promos[id] = p
		return nil
	})
}

// --- Mock Gateway ---

type mockGateway struct {
	mode         gateway.Mode
	initiateFunc func(ctx context.Context, req gateway.PaymentRequest) (*gateway.Acceptance, error)
	queryFunc    func(ctx context.Context, checkoutRequestID string) (*gateway.Result, error)

	mu    sync.Mutex
	calls []gateway.PaymentRequest
}

func (m *mockGateway) Mode() gateway.Mode {
	if m.mode == "" {
		return gateway.ModeLive
	}
	return m.mode
}

func (m *mockGateway) Initiate(ctx context.Context, req gateway.PaymentRequest) (*gateway.Acceptance, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.initiateFunc != nil {
		return m.initiateFunc(ctx, req)
	}
	return &gateway.Acceptance{CheckoutRequestID: "ws_CO_" + req.Reference, MerchantRequestID: "mr-" + req.Reference}, nil
}

func (m *mockGateway) Query(ctx context.Context, checkoutRequestID string) (*gateway.Result, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, checkoutRequestID)
	}
	return &gateway.Result{CheckoutRequestID: checkoutRequestID, Outcome: gateway.OutcomePending}, nil
}

func (m *mockGateway) initiated() []gateway.PaymentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.PaymentRequest(nil), m.calls...)
}

// --- Recording Notifier ---

type recordingNotifier struct {
	ch chan notify.Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notify.Message, 32)}
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.ch <- msg
	return nil
}

func (n *recordingNotifier) next(timeout time.Duration) (notify.Message, bool) {
	select {
	case msg := <-n.ch:
		return msg, true
	case <-time.After(timeout):
		return notify.Message{}, false
	}
}

// --- Fixtures ---

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func fixedEvent(max, sold int, price int64) models.Event {
	return models.Event{
		Title:       "Nairobi Jazz Night",
		CreatorID:   "creator-1",
		Price:       decimal.NewFromInt(price),
		TicketType:  models.TicketTypeFixed,
		MaxTickets:  intPtr(max),
		TicketsSold: sold,
		EventDate:   time.Now().Add(30 * 24 * time.Hour),
	}
}

func openEvent(price int64) models.Event {
	return models.Event{
		Title:      "Open Air Market",
		CreatorID:  "creator-1",
		Price:      decimal.NewFromInt(price),
		TicketType: models.TicketTypeOpen,
		EventDate:  time.Now().Add(30 * 24 * time.Hour),
	}
}

// pendingTicket is a correlated ticket awaiting payment.
func pendingTicket(id string, eventID uint, qty int) models.Ticket {
	t := models.Ticket{
		TicketID:          id,
		EventID:           eventID,
		UserID:            "user-1",
		BuyerName:         "Wanjiru",
		BuyerEmail:        "wanjiru@example.com",
		BuyerPhone:        "254712345678",
		Quantity:          qty,
		Amount:            decimal.NewFromInt(int64(1000 * qty)),
		QRToken:           id + "-" + "1-0123456789abcdef",
		CheckoutRequestID: strPtr("ws_CO_" + id),
		CreatedAt:         time.Now(),
	}
	t.SetState(models.StateAwaitingPayment)
	return t
}

func activeTicket(id string, eventID uint) models.Ticket {
	t := pendingTicket(id, eventID, 1)
	t.SetState(models.StateActive)
	return t
}
