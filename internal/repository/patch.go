package repository

import (
	"time"

	"github.com/yourdudeken/eventtik/internal/models"
)

// TicketPatch lists the mutable ticket fields. Nil fields are left untouched;
// a zero State leaves both status columns as they are.
type TicketPatch struct {
	State             models.TicketState
	MpesaPhone        *string
	CheckoutRequestID *string
	MerchantRequestID *string
	TransactionID     *string
	FailureReason     *string
	ReceiptNumber     *string
	CheckedInAt       *time.Time
	TransferToken     *string
	TransferredTo     *string
	TransferredAt     *time.Time
	RevokedAt         *time.Time
	RevokeReason      *string
}

// Columns returns the patch as a column map for gorm Updates.
func (p TicketPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.State != models.StateUnknown {
		cols["payment_status"] = p.State.Payment()
		cols["status"] = p.State.Status()
		cols["checked_in"] = p.State == models.StateCheckedIn
	}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	setTime := func(name string, v *time.Time) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("mpesa_phone", p.MpesaPhone)
	set("checkout_request_id", p.CheckoutRequestID)
	set("merchant_request_id", p.MerchantRequestID)
	set("transaction_id", p.TransactionID)
	set("failure_reason", p.FailureReason)
	set("receipt_number", p.ReceiptNumber)
	setTime("checked_in_at", p.CheckedInAt)
	set("transfer_token", p.TransferToken)
	set("transferred_to", p.TransferredTo)
	setTime("transferred_at", p.TransferredAt)
	setTime("revoked_at", p.RevokedAt)
	set("revoke_reason", p.RevokeReason)
	return cols
}

// Apply copies the patch onto an in-memory ticket.
func (p TicketPatch) Apply(t *models.Ticket) {
	if p.State != models.StateUnknown {
		t.SetState(p.State)
	}
	if p.MpesaPhone != nil {
		t.MpesaPhone = *p.MpesaPhone
	}
	if p.CheckoutRequestID != nil {
		t.CheckoutRequestID = ptr(*p.CheckoutRequestID)
	}
	if p.MerchantRequestID != nil {
		t.MerchantRequestID = ptr(*p.MerchantRequestID)
	}
	if p.TransactionID != nil {
		t.TransactionID = ptr(*p.TransactionID)
	}
	if p.FailureReason != nil {
		t.FailureReason = *p.FailureReason
	}
	if p.ReceiptNumber != nil {
		t.ReceiptNumber = *p.ReceiptNumber
	}
	if p.CheckedInAt != nil {
		t.CheckedInAt = ptr(*p.CheckedInAt)
	}
	if p.TransferToken != nil {
		t.TransferToken = ptr(*p.TransferToken)
	}
	if p.TransferredTo != nil {
		t.TransferredTo = *p.TransferredTo
	}
	if p.TransferredAt != nil {
		t.TransferredAt = ptr(*p.TransferredAt)
	}
	if p.RevokedAt != nil {
		t.RevokedAt = ptr(*p.RevokedAt)
	}
	if p.RevokeReason != nil {
		t.RevokeReason = *p.RevokeReason
	}
}

func ptr[T any](v T) *T { return &v }
