package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)
	r := gin.New()
	r.Use(RateLimiter(limiter))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping").Code)

	w := perform(r, http.MethodGet, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","kind":"rate_limited"}`, w.Body.String())
}

func TestIPRateLimiter_Evict(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(5), 1)
	limiter.nowFn = func() time.Time { return now }

	limiter.GetLimiter("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.GetLimiter("10.0.0.2")

	assert.Equal(t, 2, limiter.Len())
	assert.Equal(t, 1, limiter.Evict(5*time.Minute))
	assert.Equal(t, 1, limiter.Len())
}

func TestCacheAndInvalidate(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0

	r := gin.New()
	r.Use(Invalidate(store))
	r.GET("/rooms", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", Cache(store, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.POST("/rooms", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/broken", func(c *gin.Context) { c.Status(http.StatusConflict) })

	first := perform(r, http.MethodGet, "/rooms")
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := perform(r, http.MethodGet, "/rooms")
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())

	// failed mutations leave the cache alone
	assert.Equal(t, http.StatusConflict, perform(r, http.MethodPost, "/broken").Code)
	assert.JSONEq(t, `{"calls":1}`, perform(r, http.MethodGet, "/rooms").Body.String())

	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/rooms").Code)
	third := perform(r, http.MethodGet, "/rooms")
	assert.Equal(t, "MISS", third.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())

	perform(r, http.MethodGet, "/missing")
	assert.Equal(t, "MISS", perform(r, http.MethodGet, "/missing").Header().Get(CacheHeader))
}

type recordedRequest struct {
	method, route string
	code          int
}

type requestRecorder struct {
	seen []recordedRequest
}

func (r *requestRecorder) ObserveRequest(method, route string, code int) {
	r.seen = append(r.seen, recordedRequest{method, route, code})
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &requestRecorder{}

	r := gin.New()
	r.Use(RequestLog(zap.New(core), rec))
	r.GET("/rooms/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := perform(r, http.MethodGet, "/rooms/7")
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/rooms/:id", http.StatusNoContent},
		{http.MethodGet, "", http.StatusNotFound},
	}, rec.seen)
}
