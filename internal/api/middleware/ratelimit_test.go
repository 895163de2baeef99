package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"corplandlords/wireboard/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *RateLimiterMiddleware) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rm := NewRateLimiterMiddleware(ctx, cfg)

	r := gin.New()
	r.Use(rm.Limit())
	r.GET("/v1/wires", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/v1/requests", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r, rm
}

func do(r http.Handler, method, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_WritesUseSmallerBucket(t *testing.T) {
	r, _ := newLimitedRouter(t, &config.Config{
		RateLimitSoftBucketSize: 2, RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 10, RateLimitHardRefillRate: 0,
	})

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/v1/requests"))
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/v1/requests"))
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/v1/requests"))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/v1/wires"), "reads still have budget")
}

func TestRateLimiter_ReadBucket(t *testing.T) {
	r, _ := newLimitedRouter(t, &config.Config{
		RateLimitSoftBucketSize: 5, RateLimitSoftRefillRate: 0,
		RateLimitHardBucketSize: 3, RateLimitHardRefillRate: 0,
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/v1/wires"))
	}
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/v1/wires"))
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	r, rm := newLimitedRouter(t, &config.Config{RateLimitSoftBucketSize: 1, RateLimitHardBucketSize: 1})
	now := time.Now()
	rm.now = func() time.Time { return now }

	do(r, http.MethodGet, "/v1/wires")
	assert.Equal(t, 0, rm.prune())

	now = now.Add(limiterIdleTimeout + time.Second)
	assert.Equal(t, 1, rm.prune())
}
