package handler

import (
	"github.com/labstack/echo/v4"
)

// Middlewares are applied per route group by RegisterRoutes.
type Middlewares struct {
	Auth         echo.MiddlewareFunc
	OptionalAuth echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
}

type Handlers struct {
	Checkout *CheckoutHandler
	Payments *PaymentHandler
	Tickets  *TicketHandler
	CheckIn  *CheckInHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, mw Middlewares) {
	api := e.Group("/api/v1")

	events := api.Group("/events")
	events.POST("/:id/tickets", h.Checkout.Purchase, mw.OptionalAuth, mw.RateLimit)
	events.GET("/:id/quote", h.Checkout.Quote)
	events.GET("/:id/availability", h.Checkout.Availability)
	events.GET("/:id/promo-codes/:code", h.Checkout.ValidatePromo)

	api.POST("/payments/mpesa/callback", h.Payments.MpesaCallback)

	tickets := api.Group("/tickets")
	tickets.GET("/:id/payment", h.Payments.Status)
	tickets.GET("/:id", h.Tickets.Get, mw.Auth)
	tickets.GET("/:id/qr.png", h.Tickets.QRCode, mw.Auth)
	tickets.POST("/:id/transfer", h.Tickets.Transfer, mw.Auth)
	tickets.POST("/:id/revoke", h.Tickets.Revoke, mw.Auth)

	checkin := api.Group("/checkin", mw.Auth)
	checkin.POST("/scan", h.CheckIn.Scan, mw.RateLimit)
	checkin.POST("/:ticketId/confirm", h.CheckIn.Confirm)
}
