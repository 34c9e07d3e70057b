package middlewares

import (
	"ClinicHub/models"
	"ClinicHub/utils"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestValidateBearerToken(t *testing.T) {
	r := newRouter(ValidateBearerToken("secret"))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", map[string]string{"Authorization": "secret"}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", map[string]string{"Authorization": "Bearer wrong"}).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", map[string]string{"Authorization": "Bearer secret"}).Code)

	unset := newRouter(ValidateBearerToken(""))
	assert.Equal(t, http.StatusServiceUnavailable, get(unset, "/ping", map[string]string{"Authorization": "Bearer "}).Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := newRouter(Recovery(), RequestID(), LoggingMiddleware())

	rec := get(r, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = get(r, "/ping", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, get(r, "/ping", nil).Header().Get("X-Request-ID"))
}

func TestRateLimiterPerClient(t *testing.T) {
	r := newRouter(NewRateLimiterMiddleware(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", nil).Code)

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.9:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)

	unlimited := newRouter(NewRateLimiterMiddleware(RateLimiterConfig{}))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(unlimited, "/ping", nil).Code)
	}
}

func TestCorsMiddleware(t *testing.T) {
	r := newRouter(CorsMiddleware(DefaultCorsConfig([]string{"https://app.clinic.test"})))

	rec := get(r, "/ping", map[string]string{"Origin": "https://app.clinic.test"})
	assert.Equal(t, "https://app.clinic.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = get(r, "/ping", map[string]string{"Origin": "https://evil.test"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := newRouter(CorsMiddleware(DefaultCorsConfig([]string{"*"})))
	rec = get(wildcard, "/ping", map[string]string{"Origin": "https://anything.test"})
	assert.Equal(t, "https://anything.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTokenAndRoleAuth(t *testing.T) {
	tokens, err := utils.NewTokenMaker("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	doctor, _, err := tokens.GenerateAccessToken("u-doc", models.RoleDoctor)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", TokenAuthMiddleware(tokens), func(c *gin.Context) {
		s, err := SessionFromContext(c.Request.Context())
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"user_id": s.UserID, "gin_user": c.GetString("user_id")})
	})
	r.GET("/admin", TokenAuthMiddleware(tokens), RoleAuthMiddleware(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", nil).Code)

	rec := get(r, "/me", map[string]string{"Authorization": "Bearer " + doctor})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u-doc","gin_user":"u-doc"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "/me?accessToken="+doctor, nil).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", map[string]string{"Authorization": "Bearer " + doctor}).Code)
}
