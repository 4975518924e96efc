// Package handler holds the echo HTTP handlers.  Handlers parse and
// validate the request, call a service or repository and shape the JSON
// response.  They never leak raw database errors to clients.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/service"
)

// retryAfterSeconds is sent with 503 responses for lock conflicts.
const retryAfterSeconds = "1"

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// writeServiceError maps the service error taxonomy onto HTTP.  A
// malformed quantity also matches ErrInsufficientInventory, so validation
// is checked first.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorBody{"validation", err.Error()})
	case errors.Is(err, service.ErrUnknownTicketType):
		return c.JSON(http.StatusNotFound, errorBody{"unknown_ticket_type", service.ErrUnknownTicketType.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{"not_found", err.Error()})
	case errors.Is(err, service.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, errorBody{"insufficient_inventory", service.ErrInsufficientInventory.Error()})
	case errors.Is(err, service.ErrDuplicateLabel):
		return c.JSON(http.StatusConflict, errorBody{"duplicate_label", service.ErrDuplicateLabel.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, errorBody{"permission_denied", service.ErrPermissionDenied.Error()})
	case errors.Is(err, service.ErrConcurrencyConflict):
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
		return c.JSON(http.StatusServiceUnavailable, errorBody{"concurrency_conflict", service.ErrConcurrencyConflict.Error()})
	default:
		c.Logger().Errorf("request %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, errorBody{"store_error", "internal error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{"validation", msg})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorBody{"not_found", msg})
}

func internalError(c echo.Context, err error) error {
	c.Logger().Errorf("request %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, errorBody{"store_error", "internal error"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
