package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// TicketHandler serves booking, cancellation and the attendee's own
// ticket list.  The workflows re-check the actor's capability, so the
// route guards are only a first filter.
type TicketHandler struct {
	Booking      Booker
	Cancellation Canceller
	Orders       OrderLister
}

type bookReq struct {
	TicketType    string `json:"ticket_type"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
}

// Book handles POST /v1/events/:id/book.  Body:
//
//	{"ticket_type": "vip", "quantity": 2, "payment_method": "paypal"}
//
// payment_method is optional.  Returns 201 with the order and tickets.
func (h *TicketHandler) Book(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := service.BookInput{
		EventID:       eventID,
		TicketType:    strings.TrimSpace(req.TicketType),
		Quantity:      req.Quantity,
		PaymentMethod: model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
	}
	order, err := h.Booking.Book(c.Request().Context(), middleware.ActorFrom(c), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrder(order))
}

type cancelResp struct {
	service.CancellationResult
	OrderTotal *string `json:"order_total,omitempty"`
}

func toCancel(res service.CancellationResult) cancelResp {
	out := cancelResp{CancellationResult: res}
	if !res.OrderDeleted {
		total := money(res.OrderTotal)
		out.OrderTotal = &total
	}
	return out
}

// CancelTicket handles DELETE /v1/tickets/:id for the ticket's owner.
func (h *TicketHandler) CancelTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	res, err := h.Cancellation.CancelTicket(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toCancel(res))
}

// DeleteTicket handles DELETE /v1/admin/tickets/:id for organizers and
// administrators.
func (h *TicketHandler) DeleteTicket(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	res, err := h.Cancellation.DeleteTicket(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toCancel(res))
}

// MyTickets handles GET /v1/my-tickets: the caller's orders newest first.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated() {
		return writeServiceError(c, service.ErrPermissionDenied)
	}
	orders, err := h.Orders.ListByUser(c.Request().Context(), actor.ID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": toOrderDetails(orders)})
}
