package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ticketIDPrefix   = "TKT-"
	transferIDPrefix = "TXF-"
	receiptPrefix    = "RCT-"
)

// NewTicketID returns TKT- followed by 12 random upper-case hex characters.
func NewTicketID() string {
	u := uuid.New()
	return ticketIDPrefix + strings.ToUpper(hex.EncodeToString(u[:6]))
}

func NewTransferToken() string {
	return transferIDPrefix + uuid.NewString()
}

// ReceiptNumber is assigned when payment completes.
func ReceiptNumber(ticketID string, at time.Time) string {
	return receiptPrefix + at.UTC().Format("20060102") + "-" + strings.TrimPrefix(ticketID, ticketIDPrefix)
}

// NewQRToken builds the scan payload {ticket_id}-{event_id}-{nonce}. The
// nonce is an HMAC over the ticket, event, creation time and fresh random
// bytes, so it cannot be derived from the ticket id.
func NewQRToken(secret []byte, ticketID string, eventID uint, createdAt time.Time) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("qr token: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s|%d|%d|%x", ticketID, eventID, createdAt.UnixNano(), salt)
	nonce := hex.EncodeToString(mac.Sum(nil))[:16]

	return fmt.Sprintf("%s-%d-%s", ticketID, eventID, nonce), nil
}

// ParseScanPayload extracts the ticket id from a scanned QR payload or a
// manually typed ticket id. full is true when the payload carries more than
// the ticket id and must therefore match the stored token.
func ParseScanPayload(payload string) (ticketID string, full bool) {
	p := strings.TrimSpace(payload)
	if p == "" {
		return "", false
	}
	parts := strings.Split(p, "-")

	if strings.HasPrefix(strings.ToUpper(p), ticketIDPrefix) {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		return ticketIDPrefix + strings.ToUpper(parts[1]), len(parts) > 2
	}
	return parts[0], len(parts) > 1
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
