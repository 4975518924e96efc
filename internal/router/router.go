package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Guards carries what the route middleware needs.  Cache and the
// limiters may be disabled; their middleware is then a pass-through.
type Guards struct {
	JWTSecret    string
	Users        middleware.UserLookup
	Cache        *middleware.ResponseCache
	BookingLimit echo.MiddlewareFunc
}

// signedIn validates the bearer token and reloads the actor from the
// users table.
func (g Guards) signedIn(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(g.JWTSecret), middleware.LoadActor(g.Users)}
	return append(mw, extra...)
}

// as is signedIn followed by a role gate.
func (g Guards) as(roles []model.Role, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return g.signedIn(append([]echo.MiddlewareFunc{middleware.RequireRole(roles...)}, extra...)...)
}

var (
	attendees = []model.Role{model.RoleAttendee}
	managers  = []model.Role{model.RoleOrganizer, model.RoleAdministrator}
)

// RegisterRoutes registers /healthz and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the identity endpoints.  Register, login and
// refresh need no session; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	auth := e.Group("/v1/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)               // rotates the refresh token
	auth.POST("/refresh-access", a.RefreshAccess) // keeps the refresh token
	// Logout accepts a refresh_token body or, failing that, a bearer
	// token whose sessions are all revoked.
	auth.POST("/logout", a.Logout, middleware.OptionalJWT(g.JWTSecret))

	e.GET("/v1/me", a.Me, g.signedIn()...)
}

// RegisterPublic registers the unauthenticated browse endpoints behind
// the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, g Guards) {
	cache := g.Cache.Middleware()
	e.GET("/v1/events", p.ListEvents, cache)
	e.GET("/v1/events/:id", p.GetEvent, cache)
	e.GET("/v1/venues", p.ListVenues, cache)
}
