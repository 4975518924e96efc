package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterAttendee registers the attendee endpoints.  All routes require
// a valid JWT and the attendee role.  Booking is additionally rate
// limited per user, and both booking and cancellation purge the public
// cache because they move remaining counts.
func RegisterAttendee(e *echo.Echo, h *handler.TicketHandler, g Guards) {
	book := []echo.MiddlewareFunc{g.Cache.PurgeOnWrite()}
	if g.BookingLimit != nil {
		book = append([]echo.MiddlewareFunc{g.BookingLimit}, book...)
	}
	e.POST("/v1/events/:id/book", h.Book, g.as(attendees, book...)...)
	e.DELETE("/v1/tickets/:id", h.CancelTicket, g.as(attendees, g.Cache.PurgeOnWrite())...)
	e.GET("/v1/my-tickets", h.MyTickets, g.as(attendees)...)
}
