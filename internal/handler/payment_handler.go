package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yourdudeken/eventtik/internal/dto"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/models"
	"github.com/yourdudeken/eventtik/internal/service"
	"github.com/yourdudeken/eventtik/pkg/mpesa"
)

// maxCallbackBody bounds the callback payload read into memory.
const maxCallbackBody = 64 << 10

type PaymentService interface {
	HandleCallback(ctx context.Context, res gateway.Result) (*service.Settlement, error)
	Status(ctx context.Context, ticketID string) (*models.Ticket, error)
}

type PaymentWaiter interface {
	Await(ctx context.Context, ticketID string) (*models.Ticket, error)
}

type PaymentHandler struct {
	svc    PaymentService
	waiter PaymentWaiter
	log    *slog.Logger
}

func NewPaymentHandler(svc PaymentService, waiter PaymentWaiter) *PaymentHandler {
	return &PaymentHandler{svc: svc, waiter: waiter, log: slog.With("component", "payments")}
}

var callbackAccepted = dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

// MpesaCallback acknowledges every callback the store could process, including
// malformed, unknown and late ones, so the gateway does not retry them.
func (h *PaymentHandler) MpesaCallback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		h.log.Warn("callback body unreadable", "error", err)
		return c.JSON(http.StatusOK, callbackAccepted)
	}

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		h.log.Warn("malformed callback ignored", "error", err)
		return c.JSON(http.StatusOK, callbackAccepted)
	}

	res := gateway.FromCallback(cb)
	st, err := h.svc.HandleCallback(c.Request().Context(), res)
	switch {
	case errors.Is(err, service.ErrUnknownCorrelation):
		h.log.Warn("callback for unknown checkout request", "checkout_request_id", res.CheckoutRequestID)
	case err != nil:
		h.log.Error("callback not applied", "checkout_request_id", res.CheckoutRequestID, "error", err)
		return c.JSON(http.StatusInternalServerError, dto.CallbackAck{ResultCode: 1, ResultDesc: "Retry"})
	case !st.Applied && st.Ticket.State() == models.StateAwaitingPayment:
		h.log.Info("callback left payment pending", "ticket_id", st.Ticket.TicketID,
			"checkout_request_id", res.CheckoutRequestID, "result_code", res.Code)
	case !st.Applied:
		h.log.Info("callback for settled ticket ignored", "ticket_id", st.Ticket.TicketID,
			"checkout_request_id", res.CheckoutRequestID, "state", st.Ticket.State())
	}
	return c.JSON(http.StatusOK, callbackAccepted)
}

// Status reports a ticket's payment progress. With wait=true it blocks until
// the payment settles or the poll budget is spent.
func (h *PaymentHandler) Status(c echo.Context) error {
	ticketID := c.Param("id")
	ctx := c.Request().Context()

	if c.QueryParam("wait") != "true" {
		ticket, err := h.svc.Status(ctx, ticketID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, dto.ToPaymentStatusResponse(ticket))
	}

	ticket, err := h.waiter.Await(ctx, ticketID)
	if errors.Is(err, service.ErrPaymentTimeout) {
		return c.JSON(http.StatusAccepted, dto.ErrorResponse{
			Message:      err.Error(),
			Code:         "payment_timeout",
			TicketID:     ticket.TicketID,
			CurrentState: string(ticket.State()),
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentStatusResponse(ticket))
}
