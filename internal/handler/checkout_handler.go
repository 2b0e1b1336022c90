package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/middleware"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/service"
)

type CheckoutService interface {
	Purchase(ctx context.Context, req service.PurchaseRequest) (*service.Purchase, error)
	Quote(ctx context.Context, eventID uint, quantity int, promoCode string) (*service.Quote, error)
	Availability(ctx context.Context, eventID uint) (*service.Availability, error)
}

type PromoValidator interface {
	Validate(ctx context.Context, code string, eventID uint) (*models.PromoCode, error)
}

type CheckoutHandler struct {
	svc    CheckoutService
	promos PromoValidator
}

func NewCheckoutHandler(svc CheckoutService, promos PromoValidator) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, promos: promos}
}

func (h *CheckoutHandler) Purchase(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return err
	}

	var req dto.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	purchase, err := h.svc.Purchase(c.Request().Context(), service.PurchaseRequest{
		EventID:    eventID,
		UserID:     middleware.UserID(c),
		BuyerName:  req.BuyerName,
		BuyerEmail: req.BuyerEmail,
		BuyerPhone: req.BuyerPhone,
		Quantity:   req.Quantity,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		return httpError(err)
	}

	status := http.StatusAccepted
	if purchase.Ticket.State() != models.StateAwaitingPayment {
		status = http.StatusCreated
	}
	return c.JSON(status, dto.ToPurchaseResponse(purchase))
}

func (h *CheckoutHandler) Quote(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return err
	}
	quantity := 1
	if q := c.QueryParam("quantity"); q != "" {
		if quantity, err = strconv.Atoi(q); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	quote, err := h.svc.Quote(c.Request().Context(), eventID, quantity, c.QueryParam("promo_code"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

func (h *CheckoutHandler) Availability(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return err
	}

	avail, err := h.svc.Availability(c.Request().Context(), eventID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToAvailabilityResponse(avail))
}

func (h *CheckoutHandler) ValidatePromo(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return err
	}

	promo, err := h.promos.Validate(c.Request().Context(), c.Param("code"), eventID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPromoResponse(promo))
}

func eventIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	return uint(id), nil
}
