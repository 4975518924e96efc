package handler

// Public browsing API.  These routes need no authentication and sit
// behind the Redis response cache.

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// maxListLimit caps ?limit= on the event list.
const maxListLimit = 100

// PublicHandler aggregates the repositories needed for unauthenticated
// browsing.
type PublicHandler struct {
	Events      EventRepository
	Venues      VenueRepository
	Speakers    SpeakerRepository
	TicketTypes TicketTypeLister
}

// ListEvents handles GET /v1/events.  Events come back in date order;
// ?limit=N returns only the next N, as the home page does.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, maxListLimit)
	}
	events, err := h.Events.List(c.Request().Context(), limit)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// GetEvent handles GET /v1/events/:id with its venue, speakers and
// ticket types including remaining counts.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx := c.Request().Context()
	ev, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return notFound(c, "event not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	out := eventDetailResp{Event: *ev}

	venue, err := h.Venues.GetByID(ctx, ev.VenueID)
	switch {
	case err == nil:
		out.Venue = venue
	case !errors.Is(err, repository.ErrVenueNotFound):
		return internalError(c, err)
	}
	if out.Speakers, err = h.Speakers.List(ctx, id); err != nil {
		return internalError(c, err)
	}
	types, err := h.TicketTypes.ListByEvent(ctx, id)
	if err != nil {
		return internalError(c, err)
	}
	out.TicketTypes = make([]ticketTypeResp, 0, len(types))
	for _, tt := range types {
		out.TicketTypes = append(out.TicketTypes, toTicketType(tt))
	}
	return c.JSON(http.StatusOK, out)
}

// ListVenues handles GET /v1/venues.
func (h *PublicHandler) ListVenues(c echo.Context) error {
	venues, err := h.Venues.List(c.Request().Context())
	if err != nil {
		return internalError(c, err)
	}
	if venues == nil {
		venues = []model.Venue{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}
