package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLimiterRefillsOverWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(10*time.Second, 2)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("conn-1"))
	require.True(t, l.Allow("conn-1"))
	require.False(t, l.Allow("conn-1"))
	// other keys have their own bucket
	require.True(t, l.Allow("conn-2"))

	now = now.Add(5 * time.Second)
	require.True(t, l.Allow("conn-1"))
	require.False(t, l.Allow("conn-1"))

	l.Forget("conn-1")
	require.True(t, l.Allow("conn-1"))
}

func TestLimiterPrunesIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(10*time.Second, 2)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("1@10.0.0.1"))
	require.True(t, l.Allow("1@10.0.0.2"))
	require.Len(t, l.buckets, 2)

	// .2 stays in use, .1 goes idle
	now = now.Add(9 * time.Second)
	require.True(t, l.Allow("1@10.0.0.2"))

	now = now.Add(2 * time.Second)
	require.True(t, l.Allow("1@10.0.0.3"))
	require.Len(t, l.buckets, 2)
	require.NotContains(t, l.buckets, "1@10.0.0.1")
	require.Contains(t, l.buckets, "1@10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RateLimit(NewLimiter(time.Minute, 1)), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
}
