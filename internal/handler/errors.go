package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/service"
)

// httpError translates service errors into HTTP errors with a stable code.
// Anything it does not recognise becomes a 500.
func httpError(err error) error {
	var (
		validation *service.ValidationError
		inventory  *service.InventoryError
		promo      *service.PromoError
		conflict   *service.StateConflictError
		initiation *service.PaymentInitiationError
	)

	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{
			Message: validation.Error(),
			Code:    "validation_failed",
		})
	case errors.As(err, &inventory):
		resp := dto.ErrorResponse{Message: inventory.Error(), Code: string(inventory.Reason)}
		if inventory.Reason == service.InsufficientRemaining {
			remaining := inventory.Remaining
			resp.Remaining = &remaining
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, resp)
	case errors.As(err, &promo):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Message: promo.Error(),
			Code:    string(promo.Reason),
		})
	case errors.As(err, &initiation):
		return echo.NewHTTPError(http.StatusPaymentRequired, dto.ErrorResponse{
			Message:  service.ErrPaymentInitiationFailed.Error(),
			Code:     "payment_initiation_failed",
			TicketID: initiation.TicketID,
		})
	case errors.As(err, &conflict):
		code := "state_conflict"
		if conflict.Current == models.StateCheckedIn {
			code = "already_checked_in"
		}
		return echo.NewHTTPError(http.StatusConflict, dto.ErrorResponse{
			Message:      conflict.Error(),
			Code:         code,
			TicketID:     conflict.TicketID,
			CurrentState: string(conflict.Current),
		})
	case errors.Is(err, service.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Message: err.Error(), Code: "event_not_found"})
	case errors.Is(err, service.ErrTicketNotFound):
		return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Message: err.Error(), Code: "ticket_not_found"})
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, dto.ErrorResponse{Message: err.Error(), Code: "forbidden"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}
