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
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCache(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0
	r := gin.New()
	r.Use(Cache(store, time.Minute))
	r.GET("/api/availability", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	first := serve(r, http.MethodGet, "/api/availability", nil)
	second := serve(r, http.MethodGet, "/api/availability", nil)
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Empty(t, first.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	refreshed := serve(r, http.MethodGet, "/api/availability", http.Header{"Cache-Control": {"no-cache"}})
	assert.JSONEq(t, `{"calls":2}`, refreshed.Body.String())

	Invalidate(store)
	serve(r, http.MethodGet, "/api/availability", nil)
	assert.Equal(t, 3, calls)

	serve(r, http.MethodGet, "/missing", nil)
	serve(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, 5, calls, "errors are not cached")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	w := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestIPRateLimiter_SweepsIdle(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	now := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	l.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	now = now.Add(11 * time.Minute)
	l.GetLimiter("10.0.0.3")
	assert.Equal(t, 1, l.Len())
}

func TestRequireToken(t *testing.T) {
	hash, err := HashToken("s3cret")
	require.NoError(t, err)

	newRouter := func(hash string) *gin.Engine {
		r := gin.New()
		r.POST("/api/runs", RequireToken(hash), func(c *gin.Context) { c.Status(http.StatusAccepted) })
		return r
	}

	tests := []struct {
		name     string
		hash     string
		header   string
		wantCode int
	}{
		{"valid token", hash, "Bearer s3cret", http.StatusAccepted},
		{"wrong token", hash, "Bearer nope", http.StatusUnauthorized},
		{"missing header", hash, "", http.StatusUnauthorized},
		{"not bearer", hash, "Basic s3cret", http.StatusUnauthorized},
		{"not configured", "", "Bearer s3cret", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := serve(newRouter(tt.hash), http.MethodPost, "/api/runs", h)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
