package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// OrganizerHandler serves the management endpoints for organizers and
// administrators.  Plain CRUD goes straight to the repositories; ticket
// type edits and event deletion go through the catalog service because
// they touch sold inventory.
type OrganizerHandler struct {
	Events   EventRepository
	Venues   VenueRepository
	Speakers SpeakerRepository
	Orders   OrderLister
	Catalog  Catalog
}

type eventReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Time        string  `json:"time"` // HH:MM or HH:MM:SS
	VenueID     uint64  `json:"venue_id"`
}

// toEvent validates the request and builds the event it describes.
func (r eventReq) toEvent() (model.Event, string) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return model.Event{}, "name is required"
	}
	if r.VenueID == 0 {
		return model.Event{}, "venue_id is required"
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
	if err != nil {
		return model.Event{}, "date must be YYYY-MM-DD"
	}
	clock := strings.TrimSpace(r.Time)
	var at time.Time
	if at, err = time.Parse("15:04:05", clock); err != nil {
		if at, err = time.Parse("15:04", clock); err != nil {
			return model.Event{}, "time must be HH:MM"
		}
	}
	starts := time.Date(date.Year(), date.Month(), date.Day(), at.Hour(), at.Minute(), at.Second(), 0, time.UTC)
	return model.Event{Name: name, Description: r.Description, StartsAt: starts, VenueID: r.VenueID}, ""
}

// CreateEvent handles POST /v1/events.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ev, msg := req.toEvent()
	if msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Events.Create(c.Request().Context(), &ev); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return notFound(c, "venue not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /v1/events/:id.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ev, msg := req.toEvent()
	if msg != "" {
		return badRequest(c, msg)
	}
	ev.ID = id
	switch err := h.Events.Update(c.Request().Context(), &ev); {
	case errors.Is(err, repository.ErrEventNotFound):
		return notFound(c, "event not found")
	case errors.Is(err, repository.ErrVenueNotFound):
		return notFound(c, "venue not found")
	case err != nil:
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent handles DELETE /v1/events/:id.  The response lists the
// orders whose totals were recomputed and those deleted outright.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	res, err := h.Catalog.DeleteEvent(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func validVenue(v *model.Venue) string {
	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return "name is required"
	}
	return ""
}

// CreateVenue handles POST /v1/venues.
func (h *OrganizerHandler) CreateVenue(c echo.Context) error {
	var v model.Venue
	if err := c.Bind(&v); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validVenue(&v); msg != "" {
		return badRequest(c, msg)
	}
	v.ID = 0
	if err := h.Venues.Create(c.Request().Context(), &v); err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// UpdateVenue handles PUT /v1/venues/:id.
func (h *OrganizerHandler) UpdateVenue(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	var v model.Venue
	if err := c.Bind(&v); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validVenue(&v); msg != "" {
		return badRequest(c, msg)
	}
	v.ID = id
	switch err := h.Venues.Update(c.Request().Context(), &v); {
	case errors.Is(err, repository.ErrVenueNotFound):
		return notFound(c, "venue not found")
	case err != nil:
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// DeleteVenue handles DELETE /v1/venues/:id.  Venues hosting events
// cannot be deleted.
func (h *OrganizerHandler) DeleteVenue(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid venue id")
	}
	switch err := h.Venues.Delete(c.Request().Context(), id); {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, errorBody{"venue_in_use", "venue still has events"})
	case errors.Is(err, repository.ErrVenueNotFound):
		return notFound(c, "venue not found")
	case err != nil:
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func validSpeaker(s *model.Speaker) string {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return "name is required"
	}
	if s.EventID == 0 {
		return "event_id is required"
	}
	return ""
}

// CreateSpeaker handles POST /v1/speakers.
func (h *OrganizerHandler) CreateSpeaker(c echo.Context) error {
	var s model.Speaker
	if err := c.Bind(&s); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validSpeaker(&s); msg != "" {
		return badRequest(c, msg)
	}
	s.ID = 0
	if err := h.Speakers.Create(c.Request().Context(), &s); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return notFound(c, "event not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateSpeaker handles PUT /v1/speakers/:id.
func (h *OrganizerHandler) UpdateSpeaker(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid speaker id")
	}
	var s model.Speaker
	if err := c.Bind(&s); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := validSpeaker(&s); msg != "" {
		return badRequest(c, msg)
	}
	s.ID = id
	switch err := h.Speakers.Update(c.Request().Context(), &s); {
	case errors.Is(err, repository.ErrSpeakerNotFound):
		return notFound(c, "speaker not found")
	case errors.Is(err, repository.ErrEventNotFound):
		return notFound(c, "event not found")
	case err != nil:
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// DeleteSpeaker handles DELETE /v1/speakers/:id.
func (h *OrganizerHandler) DeleteSpeaker(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid speaker id")
	}
	switch err := h.Speakers.Delete(c.Request().Context(), id); {
	case errors.Is(err, repository.ErrSpeakerNotFound):
		return notFound(c, "speaker not found")
	case err != nil:
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type ticketTypeReq struct {
	Label     string          `json:"label"`
	Price     decimal.Decimal `json:"price"`
	Remaining int             `json:"remaining"`
}

// CreateTicketType handles POST /v1/events/:id/ticket-types.
func (h *OrganizerHandler) CreateTicketType(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	tt := model.TicketType{EventID: eventID, Label: req.Label, Price: req.Price, Remaining: req.Remaining}
	if err := h.Catalog.CreateTicketType(c.Request().Context(), middleware.ActorFrom(c), &tt); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toTicketType(tt))
}

// UpdateTicketType handles PUT /v1/ticket-types/:id.  Tickets already
// sold keep the label and price they were sold at.
func (h *OrganizerHandler) UpdateTicketType(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket type id")
	}
	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	tt := model.TicketType{ID: id, Label: req.Label, Price: req.Price, Remaining: req.Remaining}
	if err := h.Catalog.UpdateTicketType(c.Request().Context(), middleware.ActorFrom(c), &tt); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTicketType(tt))
}

// DeleteTicketType handles DELETE /v1/ticket-types/:id.
func (h *OrganizerHandler) DeleteTicketType(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket type id")
	}
	if err := h.Catalog.DeleteTicketType(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Dashboard handles GET /v1/dashboard: every event, venue, speaker and
// order in one response.
func (h *OrganizerHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Events.List(ctx, 0)
	if err != nil {
		return internalError(c, err)
	}
	venues, err := h.Venues.List(ctx)
	if err != nil {
		return internalError(c, err)
	}
	speakers, err := h.Speakers.List(ctx, 0)
	if err != nil {
		return internalError(c, err)
	}
	orders, err := h.Orders.ListAll(ctx)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events":   events,
		"venues":   venues,
		"speakers": speakers,
		"orders":   toOrderDetails(orders),
	})
}
