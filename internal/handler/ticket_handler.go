package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/repository"
	"github.com/yourdudeken/eventtik/internal/service"
)

const qrSize = 320

type LifecycleService interface {
	Get(ctx context.Context, caller service.Caller, ticketID string) (*models.Ticket, error)
	Transfer(ctx context.Context, caller service.Caller, ticketID, recipientEmail string) (*models.Ticket, error)
	Revoke(ctx context.Context, caller service.Caller, ticketID, reason string) (*models.Ticket, error)
}

type TicketHandler struct {
	svc     LifecycleService
	callers callers
}

func NewTicketHandler(svc LifecycleService, roles repository.RoleRepository) *TicketHandler {
	return &TicketHandler{svc: svc, callers: callers{roles: roles}}
}

func (h *TicketHandler) Get(c echo.Context) error {
	caller, err := h.callers.resolve(c)
	if err != nil {
		return err
	}

	ticket, err := h.svc.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

// QRCode renders the ticket's scan payload. Only paid, unused tickets
// have a code worth showing.
func (h *TicketHandler) QRCode(c echo.Context) error {
	caller, err := h.callers.resolve(c)
	if err != nil {
		return err
	}

	ticket, err := h.svc.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if ticket.State() != models.StateActive {
		return httpError(&service.StateConflictError{TicketID: ticket.TicketID, Current: ticket.State()})
	}

	png, err := qrcode.Encode(ticket.QRToken, qrcode.Medium, qrSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *TicketHandler) Transfer(c echo.Context) error {
	var req dto.TransferRequest
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

	ticket, err := h.svc.Transfer(c.Request().Context(), caller, c.Param("id"), req.RecipientEmail)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *TicketHandler) Revoke(c echo.Context) error {
	var req dto.RevokeRequest
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

	ticket, err := h.svc.Revoke(c.Request().Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}
