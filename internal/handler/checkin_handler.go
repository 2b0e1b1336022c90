package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
	"github.com/yourdudeken/eventtik/internal/service"
)

type CheckInService interface {
	Scan(ctx context.Context, caller service.Caller, payload string) (*service.ScanResult, error)
	Confirm(ctx context.Context, caller service.Caller, payload string) (*models.Ticket, error)
}

type CheckInHandler struct {
	svc     CheckInService
	callers callers
}

func NewCheckInHandler(svc CheckInService, roles repository.RoleRepository) *CheckInHandler {
	return &CheckInHandler{svc: svc, callers: callers{roles: roles}}
}

// Scan classifies a scanned code without admitting anyone.
func (h *CheckInHandler) Scan(c echo.Context) error {
	var req dto.ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	caller, err := h.callers.resolve(c)
	if err != nil {
		return err
	}

	res, err := h.svc.Scan(c.Request().Context(), caller, req.Payload)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToScanResponse(res))
}

// Confirm admits the holder of :ticketId, which may be a bare id or a full
// scan payload.
func (h *CheckInHandler) Confirm(c echo.Context) error {
	caller, err := h.callers.resolve(c)
	if err != nil {
		return err
	}

	ticket, err := h.svc.Confirm(c.Request().Context(), caller, c.Param("ticketId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}
