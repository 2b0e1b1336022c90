package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/middleware"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/service"
)

// --- Mock CheckoutService ---

type mockCheckoutService struct {
	purchaseFn     func(ctx context.Context, req service.PurchaseRequest) (*service.Purchase, error)
	quoteFn        func(ctx context.Context, eventID uint, quantity int, promoCode string) (*service.Quote, error)
	availabilityFn func(ctx context.Context, eventID uint) (*service.Availability, error)
}

func (m *mockCheckoutService) Purchase(ctx context.Context, req service.PurchaseRequest) (*service.Purchase, error) {
	return m.purchaseFn(ctx, req)
}
func (m *mockCheckoutService) Quote(ctx context.Context, eventID uint, quantity int, promoCode string) (*service.Quote, error) {
	return m.quoteFn(ctx, eventID, quantity, promoCode)
}
func (m *mockCheckoutService) Availability(ctx context.Context, eventID uint) (*service.Availability, error) {
	return m.availabilityFn(ctx, eventID)
}

// --- Mock PromoValidator ---

type mockPromoValidator struct {
	validateFn func(ctx context.Context, code string, eventID uint) (*models.PromoCode, error)
}

func (m *mockPromoValidator) Validate(ctx context.Context, code string, eventID uint) (*models.PromoCode, error) {
	return m.validateFn(ctx, code, eventID)
}

// --- Mock PaymentService ---

type mockPaymentService struct {
	callbackFn func(ctx context.Context, res gateway.Result) (*service.Settlement, error)
	statusFn   func(ctx context.Context, ticketID string) (*models.Ticket, error)
}

func (m *mockPaymentService) HandleCallback(ctx context.Context, res gateway.Result) (*service.Settlement, error) {
	return m.callbackFn(ctx, res)
}
func (m *mockPaymentService) Status(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return m.statusFn(ctx, ticketID)
}

// --- Mock PaymentWaiter ---

type mockWaiter struct {
	awaitFn func(ctx context.Context, ticketID string) (*models.Ticket, error)
}

func (m *mockWaiter) Await(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return m.awaitFn(ctx, ticketID)
}

// --- Mock LifecycleService ---

type mockLifecycle struct {
	getFn      func(ctx context.Context, caller service.Caller, ticketID string) (*models.Ticket, error)
	transferFn func(ctx context.Context, caller service.Caller, ticketID, email string) (*models.Ticket, error)
	revokeFn   func(ctx context.Context, caller service.Caller, ticketID, reason string) (*models.Ticket, error)
}

func (m *mockLifecycle) Get(ctx context.Context, caller service.Caller, ticketID string) (*models.Ticket, error) {
	return m.getFn(ctx, caller, ticketID)
}
func (m *mockLifecycle) Transfer(ctx context.Context, caller service.Caller, ticketID, email string) (*models.Ticket, error) {
	return m.transferFn(ctx, caller, ticketID, email)
}
func (m *mockLifecycle) Revoke(ctx context.Context, caller service.Caller, ticketID, reason string) (*models.Ticket, error) {
	return m.revokeFn(ctx, caller, ticketID, reason)
}

// --- Mock CheckInService ---

type mockCheckIn struct {
	scanFn    func(ctx context.Context, caller service.Caller, payload string) (*service.ScanResult, error)
	confirmFn func(ctx context.Context, caller service.Caller, payload string) (*models.Ticket, error)
}

func (m *mockCheckIn) Scan(ctx context.Context, caller service.Caller, payload string) (*service.ScanResult, error) {
	return m.scanFn(ctx, caller, payload)
}
func (m *mockCheckIn) Confirm(ctx context.Context, caller service.Caller, payload string) (*models.Ticket, error) {
	return m.confirmFn(ctx, caller, payload)
}

// --- Mock RoleRepository ---

type mockRoles struct {
	roles map[string]models.Role
	err   error
}

func (m *mockRoles) FindRole(_ context.Context, userID string) (models.Role, error) {
	if m.err != nil {
		return models.RoleNone, m.err
	}
	return m.roles[userID], nil
}

// --- Helpers ---

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = middleware.NewRequestValidator()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asUser marks the request as authenticated the way JWTAuth does.
func asUser(c echo.Context, userID string) {
	c.Set("user_id", userID)
}

func assertHTTPError(t *testing.T, err error, status int, code string) dto.ErrorResponse {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, status, he.Code)
	resp, _ := he.Message.(dto.ErrorResponse)
	if code != "" {
		assert.Equal(t, code, resp.Code)
	}
	return resp
}

func strPtr(s string) *string { return &s }

func activeTicket(id string) *models.Ticket {
	t := &models.Ticket{
		TicketID:      id,
		EventID:       7,
		UserID:        "user-1",
		BuyerName:     "Amina Otieno",
		BuyerEmail:    "amina@example.com",
		Quantity:      2,
		Amount:        decimal.NewFromInt(1000),
		QRToken:       id + "-7-0123456789abcdef",
		ReceiptNumber: "RCT-20261019-ABCDEF",
		TransactionID: strPtr("NLJ7RT61SV"),
		CreatedAt:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	t.SetState(models.StateActive)
	return t
}

func awaitingTicket(id string) *models.Ticket {
	t := activeTicket(id)
	t.ReceiptNumber = ""
	t.TransactionID = nil
	t.CheckoutRequestID = strPtr("ws_CO_" + id)
	t.SetState(models.StateAwaitingPayment)
	return t
}
