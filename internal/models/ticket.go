package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is one purchase of Quantity admissions to an event. Rows are created
// once, awaiting payment, and never deleted.
type Ticket struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	TicketID string `gorm:"type:varchar(32);not null;uniqueIndex" json:"ticket_id"`
	EventID  uint   `gorm:"not null;index" json:"event_id"`
	UserID   string `gorm:"index" json:"user_id,omitempty"`

	BuyerName  string `gorm:"not null" json:"buyer_name"`
	BuyerEmail string `gorm:"not null" json:"buyer_email"`
	BuyerPhone string `gorm:"not null" json:"buyer_phone"`

	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PromoCodeID *uint           `gorm:"index" json:"promo_code_id,omitempty"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	Status        TicketStatus  `gorm:"type:varchar(20);not null;default:'valid'" json:"status"`
	CheckedIn     bool          `gorm:"not null;default:false" json:"checked_in"`
	CheckedInAt   *time.Time    `json:"checked_in_at,omitempty"`
	QRToken       string        `gorm:"type:varchar(80);not null;uniqueIndex" json:"-"`

	MpesaPhone        string  `json:"-"`
	CheckoutRequestID *string `gorm:"type:varchar(80);uniqueIndex" json:"checkout_request_id,omitempty"`
	MerchantRequestID *string `gorm:"type:varchar(80)" json:"merchant_request_id,omitempty"`
	TransactionID     *string `gorm:"type:varchar(80)" json:"transaction_id,omitempty"`
	FailureReason     string  `json:"failure_reason,omitempty"`
	ReceiptNumber     string  `json:"receipt_number,omitempty"`

	TransferToken *string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	TransferredTo string     `json:"transferred_to,omitempty"`
	TransferredAt *time.Time `json:"transferred_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokeReason  string     `json:"revoke_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State returns the combined lifecycle state, or StateUnknown when the stored
// columns form an illegal pair.
func (t *Ticket) State() TicketState {
	s, err := StateOf(t.PaymentStatus, t.Status)
	if err != nil {
		return StateUnknown
	}
	return s
}

// SetState writes both status columns from a combined state.
func (t *Ticket) SetState(s TicketState) {
	t.PaymentStatus = s.Payment()
	t.Status = s.Status()
	t.CheckedIn = s == StateCheckedIn
}

// IsSimulated reports whether the payment was settled without a real charge.
func (t *Ticket) IsSimulated() bool {
	if t.TransactionID == nil {
		return false
	}
	return strings.HasPrefix(*t.TransactionID, SimulatedTransactionPrefix) ||
		strings.HasPrefix(*t.TransactionID, NoChargeTransactionPrefix)
}

const (
	SimulatedTransactionPrefix = "SIMULATED-"
	NoChargeTransactionPrefix  = "NOCHARGE-"
)
