package middleware

import (
	"context"
	"net/http"
	"strconv"

	"payout-service/internal/redis"
	"payout-service/internal/transport/httpdto"
	"payout-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CreateLimiter is satisfied by redis.RateLimiter.
type CreateLimiter interface {
	AllowCreate(ctx context.Context, clientID string) (*redis.RateLimitResult, error)
}

// CreateRateLimitMiddleware limits payout creation per client IP.
// A limiter outage lets the request through.
func CreateRateLimitMiddleware(limiter CreateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.AllowCreate(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Warnf("rate limiter unavailable: %v", err)
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
