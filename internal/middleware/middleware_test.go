package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/models"
	"workforce_backend/pkg/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.Configure("test-secret", time.Hour)
}

func tokenFor(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token, _, err := auth.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": role})
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, "u1", models.UserRoleHR))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"u1","role":"hr"}`, w.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+tokenFor(t, "u2", models.UserRoleEmployee), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireCapability(t *testing.T) {
	r := gin.New()
	r.POST("/announcements", AuthMiddleware(), RequireCapability(auth.CapCreateAnnouncements), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	cases := map[models.UserRole]int{
		models.UserRoleManager:    http.StatusCreated,
		models.UserRoleHR:         http.StatusCreated,
		models.UserRoleEmployee:   http.StatusForbidden,
		models.UserRoleAccountant: http.StatusForbidden,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/announcements", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, "u1", role))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %s", role)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimit(1, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestResponseCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewResponseStore(cache.Options{Capacity: 100, TTL: 30 * time.Second, Now: func() time.Time { return now }})

	calls := 0
	r := gin.New()
	r.GET("/announcements", ResponseCacheWith(store), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	first := get("/announcements?limit=5&a=1")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	now = now.Add(29*time.Second + 900*time.Millisecond)
	second := get("/announcements?a=1&limit=5")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	now = now.Add(200 * time.Millisecond)
	third := get("/announcements?limit=5&a=1")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCacheKeySortsParams(t *testing.T) {
	a, _ := url.Parse("/x?b=2&a=1")
	b, _ := url.Parse("/x?a=1&b=2")
	assert.Equal(t, CacheKey("u", a), CacheKey("u", b))
	assert.NotEqual(t, CacheKey("u1", a), CacheKey("u2", a))
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "production", "info")

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/announcements", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"requestId": logger.GetRequestID(c.Request.Context())})
	})

	req := httptest.NewRequest(http.MethodGet, "/announcements", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"requestId":"req-42"}`, w.Body.String())
	assert.Contains(t, buf.String(), `"route":"/announcements"`)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, buf.String())
}
