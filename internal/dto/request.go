package dto

// PurchaseRequest is the body of POST /events/:id/tickets. Quantity limits
// and phone format are checked by the checkout service.
type PurchaseRequest struct {
	BuyerName  string `json:"buyer_name" validate:"required,max=120"`
	BuyerEmail string `json:"buyer_email" validate:"required,email,max=254"`
	BuyerPhone string `json:"buyer_phone" validate:"required,max=20"`
	Quantity   int    `json:"quantity"`
	PromoCode  string `json:"promo_code" validate:"max=50"`
}

type TransferRequest struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email,max=254"`
}

type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ScanRequest carries a scanned QR payload or a typed ticket id.
type ScanRequest struct {
	Payload string `json:"payload" validate:"required,max=200"`
}
