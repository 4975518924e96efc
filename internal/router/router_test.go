package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

func newServer() *echo.Echo {
	e := echo.New()
	g := Guards{JWTSecret: "test-secret"}
	tickets := &handler.TicketHandler{}
	RegisterRoutes(e, nil)
	RegisterAuth(e, &handler.AuthHandler{}, g)
	RegisterPublic(e, &handler.PublicHandler{}, g)
	RegisterAttendee(e, tickets, g)
	RegisterAdmin(e, tickets, g)
	RegisterOrganizer(e, &handler.OrganizerHandler{}, g)
	return e
}

func TestRouteTable(t *testing.T) {
	e := newServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/refresh-access",
		"POST /v1/auth/logout",
		"GET /v1/me",
		"GET /v1/events",
		"GET /v1/events/:id",
		"GET /v1/venues",
		"POST /v1/events/:id/book",
		"GET /v1/my-tickets",
		"DELETE /v1/tickets/:id",
		"DELETE /v1/admin/tickets/:id",
		"GET /v1/dashboard",
		"POST /v1/events",
		"PUT /v1/events/:id",
		"DELETE /v1/events/:id",
		"POST /v1/events/:id/ticket-types",
		"PUT /v1/ticket-types/:id",
		"DELETE /v1/ticket-types/:id",
		"POST /v1/venues",
		"PUT /v1/venues/:id",
		"DELETE /v1/venues/:id",
		"POST /v1/speakers",
		"PUT /v1/speakers/:id",
		"DELETE /v1/speakers/:id",
	} {
		assert.True(t, have[want], want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/events/1/book"},
		{http.MethodDelete, "/v1/tickets/1"},
		{http.MethodDelete, "/v1/admin/tickets/1"},
		{http.MethodPost, "/v1/events"},
		{http.MethodGet, "/v1/dashboard"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
	}
}

func TestHealthz(t *testing.T) {
	e := newServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 1, model.RoleAttendee, 5)
	assert.NoError(t, err)
	e := newServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/tickets/1", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
