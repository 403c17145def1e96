package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func rateLimitedEngine(config RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(NewRateLimiter(config).RateLimit())
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	assert.Equal(t, DefaultRate, rl.limiter.Limit())
	assert.Equal(t, DefaultBurst, rl.limiter.Burst())
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	engine := rateLimitedEngine(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 2})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"rate limit exceeded"}`, w.Body.String())
}
