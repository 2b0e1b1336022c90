package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	EventID       uint            `gorm:"not null;uniqueIndex:idx_promo_event_code" json:"event_id"`
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_promo_event_code" json:"code"`
	DiscountType  DiscountType    `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MaxUses       *int            `json:"max_uses,omitempty"`
	CurrentUses   int             `gorm:"not null;default:0" json:"current_uses"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NormalizePromoCode trims and upper-cases a code as entered by a buyer.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether now falls inside [ValidFrom, ValidUntil]. Missing
// bounds are open.
func (p *PromoCode) InWindow(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}
