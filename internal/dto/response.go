package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/service"
)

type ErrorResponse struct {
	Message      string `json:"message"`
	Code         string `json:"code,omitempty"`
	TicketID     string `json:"ticket_id,omitempty"`
	CurrentState string `json:"current_state,omitempty"`
	Remaining    *int   `json:"remaining,omitempty"`
}

type PurchaseResponse struct {
	TicketID          string          `json:"ticket_id"`
	State             string          `json:"state"`
	PaymentStatus     string          `json:"payment_status"`
	Quantity          int             `json:"quantity"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	Amount            decimal.Decimal `json:"amount"`
	CheckoutRequestID string          `json:"checkout_request_id,omitempty"`
	ReceiptNumber     string          `json:"receipt_number,omitempty"`
	Simulated         bool            `json:"simulated"`
}

type TicketResponse struct {
	TicketID      string          `json:"ticket_id"`
	EventID       uint            `json:"event_id"`
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"payment_status"`
	Status        string          `json:"status"`
	State         string          `json:"state"`
	CheckedIn     bool            `json:"checked_in"`
	CheckedInAt   *time.Time      `json:"checked_in_at,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Simulated     bool            `json:"simulated"`
	FailureReason string          `json:"failure_reason,omitempty"`
	TransferredTo string          `json:"transferred_to,omitempty"`
	TransferredAt *time.Time      `json:"transferred_at,omitempty"`
	RevokedAt     *time.Time      `json:"revoked_at,omitempty"`
	RevokeReason  string          `json:"revoke_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PaymentStatusResponse struct {
	TicketID      string `json:"ticket_id"`
	PaymentStatus string `json:"payment_status"`
	State         string `json:"state"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type QuoteResponse struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	PromoCode string          `json:"promo_code,omitempty"`
}

type AvailabilityResponse struct {
	EventID        uint            `json:"event_id"`
	Title          string          `json:"title"`
	Price          decimal.Decimal `json:"price"`
	TicketType     string          `json:"ticket_type"`
	MaxTickets     *int            `json:"max_tickets,omitempty"`
	TicketsSold    int             `json:"tickets_sold"`
	Reserved       int             `json:"reserved"`
	Remaining      *int            `json:"remaining,omitempty"`
	TicketDeadline *time.Time      `json:"ticket_deadline,omitempty"`
}

type PromoResponse struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
}

type ScanResponse struct {
	TicketID       string          `json:"ticket_id,omitempty"`
	Classification string          `json:"classification"`
	Ticket         *TicketResponse `json:"ticket,omitempty"`
}

// CallbackAck is the body Daraja expects back from a callback URL.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// stateLabel is what buyers see for a ticket's payment progress.
func stateLabel(s models.TicketState) string {
	switch s {
	case models.StateAwaitingPayment:
		return "processing"
	case models.StatePaymentFailed:
		return "failed"
	case models.StateUnknown:
		return "unknown"
	}
	return "completed"
}

func ToPurchaseResponse(p *service.Purchase) PurchaseResponse {
	t := p.Ticket
	resp := PurchaseResponse{
		TicketID:      t.TicketID,
		State:         stateLabel(t.State()),
		PaymentStatus: string(t.PaymentStatus),
		Quantity:      t.Quantity,
		Subtotal:      p.Quote.Subtotal,
		Discount:      p.Quote.Discount,
		Amount:        p.Quote.Total,
		ReceiptNumber: t.ReceiptNumber,
		Simulated:     t.IsSimulated() || (t.CheckoutRequestID != nil && gateway.IsSimulated(*t.CheckoutRequestID)),
	}
	if t.CheckoutRequestID != nil {
		resp.CheckoutRequestID = *t.CheckoutRequestID
	}
	return resp
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	resp := TicketResponse{
		TicketID:      t.TicketID,
		EventID:       t.EventID,
		BuyerName:     t.BuyerName,
		BuyerEmail:    t.BuyerEmail,
		Quantity:      t.Quantity,
		Amount:        t.Amount,
		PaymentStatus: string(t.PaymentStatus),
		Status:        string(t.Status),
		State:         string(t.State()),
		CheckedIn:     t.CheckedIn,
		CheckedInAt:   t.CheckedInAt,
		ReceiptNumber: t.ReceiptNumber,
		Simulated:     t.IsSimulated(),
		FailureReason: t.FailureReason,
		TransferredTo: t.TransferredTo,
		TransferredAt: t.TransferredAt,
		RevokedAt:     t.RevokedAt,
		RevokeReason:  t.RevokeReason,
		CreatedAt:     t.CreatedAt,
	}
	if t.TransactionID != nil {
		resp.TransactionID = *t.TransactionID
	}
	return resp
}

func ToPaymentStatusResponse(t *models.Ticket) PaymentStatusResponse {
	return PaymentStatusResponse{
		TicketID:      t.TicketID,
		PaymentStatus: string(t.PaymentStatus),
		State:         string(t.State()),
		ReceiptNumber: t.ReceiptNumber,
		FailureReason: t.FailureReason,
	}
}

func ToQuoteResponse(q *service.Quote) QuoteResponse {
	resp := QuoteResponse{
		Quantity:  q.Quantity,
		UnitPrice: q.UnitPrice,
		Subtotal:  q.Subtotal,
		Discount:  q.Discount,
		Total:     q.Total,
	}
	if q.Promo != nil {
		resp.PromoCode = q.Promo.Code
	}
	return resp
}

func ToAvailabilityResponse(a *service.Availability) AvailabilityResponse {
	e := a.Event
	return AvailabilityResponse{
		EventID:        e.ID,
		Title:          e.Title,
		Price:          e.Price,
		TicketType:     string(e.TicketType),
		MaxTickets:     e.MaxTickets,
		TicketsSold:    e.TicketsSold,
		Reserved:       a.Reserved,
		Remaining:      a.Remaining,
		TicketDeadline: e.TicketDeadline,
	}
}

func ToPromoResponse(p *models.PromoCode) PromoResponse {
	return PromoResponse{
		Code:          p.Code,
		DiscountType:  string(p.DiscountType),
		DiscountValue: p.DiscountValue,
		ValidUntil:    p.ValidUntil,
	}
}

func ToScanResponse(r *service.ScanResult) ScanResponse {
	resp := ScanResponse{TicketID: r.TicketID, Classification: string(r.Classification)}
	if r.Ticket != nil {
		t := ToTicketResponse(r.Ticket)
		resp.Ticket = &t
	}
	return resp
}
