package middleware

// identity.go carries the authenticated actor through the echo context
// and reloads it from the users table so a token issued before a role
// change or deactivation cannot act with stale rights.

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

const actorKey = "actor"

// SetActor stores the actor on the context.
func SetActor(c echo.Context, a model.Actor) { c.Set(actorKey, a) }

// ActorFrom returns the actor stored by JWTAuth or LoadActor.  An
// anonymous zero Actor is returned for unauthenticated requests.
func ActorFrom(c echo.Context) model.Actor {
	a, _ := c.Get(actorKey).(model.Actor)
	return a
}

// userID renders the actor id for rate limit and cache keys, "guest"
// when unauthenticated.
func userID(c echo.Context) string {
	a := ActorFrom(c)
	if !a.Authenticated() {
		return "guest"
	}
	return strconv.FormatUint(a.ID, 10)
}

// UserLookup loads a user by id.  *repository.UserRepo implements it.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoadActor replaces the token's role with the one currently stored for
// the user and rejects deactivated or deleted accounts.  It must run
// after JWTAuth.
func LoadActor(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a := ActorFrom(c)
			if !a.Authenticated() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			u, err := users.GetByID(c.Request().Context(), a.ID)
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account no longer exists"})
			}
			if err != nil {
				c.Logger().Errorf("load actor %d: %v", a.ID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
			}
			role, ok := model.ParseRole(string(u.Role))
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			SetActor(c, model.Actor{ID: u.ID, Role: role})
			return next(c)
		}
	}
}
