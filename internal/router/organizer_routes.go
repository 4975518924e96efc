package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterOrganizer registers the management endpoints for organizers
// and administrators.  Every write purges the public cache.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, g Guards) {
	w := g.as(managers, g.Cache.PurgeOnWrite())

	// ---- Events ----
	e.POST("/v1/events", o.CreateEvent, w...)
	e.PUT("/v1/events/:id", o.UpdateEvent, w...)
	e.DELETE("/v1/events/:id", o.DeleteEvent, w...) // cascades tickets and fixes order totals

	// ---- Ticket types ----
	e.POST("/v1/events/:id/ticket-types", o.CreateTicketType, w...)
	e.PUT("/v1/ticket-types/:id", o.UpdateTicketType, w...)
	e.DELETE("/v1/ticket-types/:id", o.DeleteTicketType, w...)

	// ---- Venues ----
	e.POST("/v1/venues", o.CreateVenue, w...)
	e.PUT("/v1/venues/:id", o.UpdateVenue, w...)
	e.DELETE("/v1/venues/:id", o.DeleteVenue, w...) // refused while events use it

	// ---- Speakers ----
	e.POST("/v1/speakers", o.CreateSpeaker, w...)
	e.PUT("/v1/speakers/:id", o.UpdateSpeaker, w...)
	e.DELETE("/v1/speakers/:id", o.DeleteSpeaker, w...)

	e.GET("/v1/dashboard", o.Dashboard, g.as(managers)...)
}

// RegisterAdmin registers ticket overrides.  Organizers and
// administrators may delete any attendee's ticket.
func RegisterAdmin(e *echo.Echo, h *handler.TicketHandler, g Guards) {
	admin := e.Group("/v1/admin")
	admin.DELETE("/tickets/:id", h.DeleteTicket, g.as(managers, g.Cache.PurgeOnWrite())...)
}
