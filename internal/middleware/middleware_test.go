package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

const secret = "test-secret"

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func bearer(t *testing.T, c echo.Context, id uint64, role model.Role) {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTAuth(t *testing.T) {
	h := JWTAuth(secret)(func(c echo.Context) error {
		a := ActorFrom(c)
		assert.Equal(t, uint64(7), a.ID)
		assert.Equal(t, model.RoleOrganizer, a.Role)
		return okHandler(c)
	})

	c, rec := newContext(http.MethodGet, "/")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer nope")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/")
	bearer(t, c, 7, model.RoleOrganizer)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalJWTStaysAnonymous(t *testing.T) {
	var seen model.Actor
	h := OptionalJWT(secret)(func(c echo.Context) error {
		seen = ActorFrom(c)
		return okHandler(c)
	})

	c, rec := newContext(http.MethodGet, "/")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, seen.Authenticated())
	assert.Equal(t, "guest", userID(c))
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleOrganizer, model.RoleAdministrator)(okHandler)

	c, rec := newContext(http.MethodGet, "/")
	SetActor(c, model.Actor{ID: 1, Role: model.RoleAttendee})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext(http.MethodGet, "/")
	SetActor(c, model.Actor{ID: 2, Role: model.RoleAdministrator})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubUsers map[uint64]model.User

func (s stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if id == 99 {
		return model.User{}, errors.New("db down")
	}
	u, ok := s[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func TestLoadActorUsesStoredRole(t *testing.T) {
	users := stubUsers{
		1: {ID: 1, Role: model.RoleAttendee, IsActive: true},
		2: {ID: 2, Role: model.RoleOrganizer, IsActive: false},
	}
	var seen model.Actor
	h := LoadActor(users)(func(c echo.Context) error {
		seen = ActorFrom(c)
		return okHandler(c)
	})

	cases := []struct {
		actor model.Actor
		code  int
	}{
		{model.Actor{}, http.StatusUnauthorized},
		{model.Actor{ID: 1, Role: model.RoleAdministrator}, http.StatusOK},
		{model.Actor{ID: 2, Role: model.RoleOrganizer}, http.StatusForbidden},
		{model.Actor{ID: 3, Role: model.RoleAttendee}, http.StatusUnauthorized},
		{model.Actor{ID: 99, Role: model.RoleAttendee}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newContext(http.MethodGet, "/")
		SetActor(c, tc.actor)
		require.NoError(t, h(c))
		assert.Equal(t, tc.code, rec.Code, "actor %d", tc.actor.ID)
	}
	// The token claimed administrator; the stored role wins.
	assert.Equal(t, model.RoleAttendee, seen.Role)
}

func TestBuildRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/events/3/book")
	c.SetPath("/v1/events/:id/book")
	SetActor(c, model.Actor{ID: 42, Role: model.RoleAttendee})

	cfg := config.RateLimitConfig{Prefix: "rl-book", KeyStrategy: "user_route"}
	assert.Equal(t, "rl-book:user:42:route:POST /v1/events/:id/book", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl-book:ip:192.0.2.1", buildRateKey(cfg, c))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	h := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)(okHandler)
	c, rec := newContext(http.MethodGet, "/")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseBucketResult(t *testing.T) {
	res, ok := parseBucketResult([]interface{}{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.Equal(t, 2, res.retryAfter())

	res, ok = parseBucketResult([]interface{}{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.True(t, res.allowed)
	assert.Equal(t, int64(4), res.remaining)
	assert.Equal(t, 1, res.retryAfter())

	_, ok = parseBucketResult("OK")
	assert.False(t, ok)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "events-cache",
	}
}

func TestResponseCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), rdb)

	c, rec := newContext(http.MethodGet, "/v1/events/5")
	c.SetPath("/v1/events/:id")
	c.SetParamNames("id")
	c.SetParamValues("5")
	key := cacheKeyFrom(rc.cfg, c)

	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"id":5}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	h := rc.Middleware()(func(c echo.Context) error {
		t.Fatal("handler must not run on a cache hit")
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
	assert.JSONEq(t, `{"id":5}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheMissStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), rdb)

	c, rec := newContext(http.MethodGet, "/v1/events?limit=2")
	c.SetPath("/v1/events")
	key := cacheKeyFrom(rc.cfg, c)
	mock.ExpectGet(key).RedisNil()
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) != 4 || actual[1] != key {
			return errors.New("unexpected setex")
		}
		return nil
	}).ExpectSetEx(key, nil, time.Minute).SetVal("OK")

	calls := 0
	h := rc.Middleware()(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"events": []int{}})
	})
	require.NoError(t, h(c))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), rdb)

	c, rec := newContext(http.MethodGet, "/v1/events/404")
	c.SetPath("/v1/events/:id")
	c.SetParamNames("id")
	c.SetParamValues("404")
	mock.ExpectGet(cacheKeyFrom(rc.cfg, c)).RedisNil()

	h := rc.Middleware()(func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	// No SetEx expected: a 404 is never cached.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOnWrite(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), rdb)

	mock.ExpectScan(0, "events-cache:*", 100).SetVal([]string{"events-cache:a", "events-cache:b"}, 0)
	mock.ExpectDel("events-cache:a", "events-cache:b").SetVal(2)

	h := rc.PurgeOnWrite()(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	c, rec := newContext(http.MethodPost, "/v1/events/1/book")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Failed writes leave the cache alone.
	h = rc.PurgeOnWrite()(func(c echo.Context) error { return c.NoContent(http.StatusConflict) })
	c, _ = newContext(http.MethodPost, "/v1/events/1/book")
	require.NoError(t, h(c))
	assert.NoError(t, mock.ExpectationsWereMet())
}
