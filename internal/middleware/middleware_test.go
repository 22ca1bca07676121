package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/moviestore/internal/authz"
	"github.com/iliyamo/moviestore/internal/config"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/utils"
)

const secret = "test-secret"

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, "alice", string(role), 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := Identity(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id.UserID, "role": id.Role})
	}, JWTAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	other, err := utils.NewAccessToken("another-secret", 7, "alice", "GUEST", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, 7, model.RoleAdmin))
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"ADMIN"}`, rec.Body.String())
}

func TestJWTAuthRejectsUnknownRole(t *testing.T) {
	e := echo.New()
	e.GET("/me", ok, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 7, "alice", "ROOT", 5)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestOptionalJWTLetsAnonymousThrough(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		_, ok := Identity(c)
		return c.String(http.StatusOK, map[bool]string{true: "user", false: "anon"}[ok])
	}, OptionalJWT(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "anon", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, 3, model.RoleGuest))
	assert.Equal(t, "user", serve(e, req).Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", ok, JWTAuth(secret), RequireRole(model.RoleAdmin, model.RoleSuperAdmin))

	for role, want := range map[model.Role]int{
		model.RoleGuest:      http.StatusForbidden,
		model.RoleAdmin:      http.StatusOK,
		model.RoleSuperAdmin: http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", bearer(t, 1, role))
		assert.Equal(t, want, serve(e, req).Code, role)
	}
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/book", ok, NewTokenBucket(cfg, nil))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/book", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, serve(e, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/book", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code, "each address has its own bucket")
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/", ok, NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/book", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/book")
	SetIdentity(c, authz.Identity{UserID: 9, Role: model.RoleGuest})

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:9", rateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:POST /book", rateKey(cfg, c))
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "route_query"}
	key := func(target string) string {
		return cacheKey(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder()))
	}
	assert.Equal(t, key("/v1/movies?category=now"), key("/v1/movies?category=now"))
	assert.NotEqual(t, key("/v1/movies?category=now"), key("/v1/movies?category=soon"))
	assert.Contains(t, key("/v1/movies"), "c:")
}

func TestRedisCacheWithoutClientIsPassThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	e.GET("/", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))

	serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 2, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflow)
	assert.Equal(t, "abcde", rec.Body.String())
}
