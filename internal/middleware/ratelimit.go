package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chaplog/internal/metrics"
	"chaplog/internal/ratelimit"
	"chaplog/internal/response"
)

// RateLimit applies the limiter per client IP. Limiter errors reject the
// request.
func RateLimit(limiter ratelimit.Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Error().Err(err).Str("client_ip", c.ClientIP()).Msg("rate limiter unavailable")
		}
		if !decision.Allowed {
			metrics.RateLimitRejections.Inc()
			response.TooManyRequests(c, decision.RetryAfter)
			return
		}
		c.Next()
	}
}
