package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/models"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

var hundred = decimal.NewFromInt(100)

// Quote is the price breakdown for a purchase.
type Quote struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Promo     *models.PromoCode
}

func checkQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return &InventoryError{Reason: InvalidQuantity}
	}
	return nil
}

// CheckInventory decides whether quantity tickets can be sold now. reserved
// is the quantity held by tickets still awaiting payment.
func CheckInventory(event *models.Event, quantity, reserved int, now time.Time) error {
	if err := checkQuantity(quantity); err != nil {
		return err
	}

	if event.TicketType == models.TicketTypeOpen && event.TicketDeadline != nil && now.After(*event.TicketDeadline) {
		return &InventoryError{Reason: DeadlinePassed}
	}

	if remaining, limited := event.Remaining(reserved); limited {
		if remaining == 0 {
			return &InventoryError{Reason: SoldOut}
		}
		if remaining < quantity {
			return &InventoryError{Reason: InsufficientRemaining, Remaining: remaining}
		}
	}
	return nil
}

// PriceTickets computes the charge. promo must already be validated.
func PriceTickets(event *models.Event, quantity int, promo *models.PromoCode) Quote {
	subtotal := event.Price.Mul(decimal.NewFromInt(int64(quantity)))
	total := subtotal

	if promo != nil {
		switch promo.DiscountType {
		case models.DiscountPercentage:
			total = subtotal.Mul(hundred.Sub(promo.DiscountValue)).Div(hundred)
		case models.DiscountFixed:
			total = subtotal.Sub(promo.DiscountValue)
		}
	}
	total = decimal.Max(total, decimal.Zero).Round(2)
	if total.GreaterThan(subtotal) {
		total = subtotal
	}

	return Quote{
		Quantity:  quantity,
		UnitPrice: event.Price,
		Subtotal:  subtotal,
		Discount:  subtotal.Sub(total),
		Total:     total,
		Promo:     promo,
	}
}
