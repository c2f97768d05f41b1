package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/interfaces/http/response"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/redis"
)

var redisIncrWithTTL = redis.IncrWithTTL

// RateLimitMiddleware allows at most requests calls per window for each caller and route.
// Callers are identified by user id when authenticated, otherwise by client IP.
// The limiter fails open when Redis is unavailable.
func RateLimitMiddleware(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requests <= 0 || window <= 0 || !redisReady() {
			c.Next()
			return
		}

		caller := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			caller = userID.String()
		}
		key := fmt.Sprintf("ratelimit:%s:%s:%s", c.Request.Method, c.FullPath(), caller)

		count, ttl, err := redisIncrWithTTL(c.Request.Context(), key, window)
		if err != nil {
			logger.Warn(c.Request.Context(), "Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(requests) {
			if ttl <= 0 {
				ttl = window
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			response.Abort(c, domainerrors.TooManyRequests("Too many requests"))
			return
		}

		c.Next()
	}
}
