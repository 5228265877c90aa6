package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"footballapp/internal/metrics"
	"footballapp/internal/service"
)

// RateLimitMiddleware cuenta por IP de cliente y corta con 429 al superar la política.
func RateLimitMiddleware(limiter service.RateLimiter, policy service.RateLimitPolicy, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			m.RateLimited(policy.Category)
			abortWithError(c, http.StatusTooManyRequests, policy.Message)
			return
		}
		c.Next()
	}
}
