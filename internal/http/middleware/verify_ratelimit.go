package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// VerifyRateLimit limits verification attempts per wallet address (not per
// IP), since each attempt costs an oracle or chain call. Requires JWT to run
// first.
func VerifyRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			// Redis not configured, fail-open
			c.Next()
			return
		}

		address := Address(c)
		if address == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "verify_rl:" + address + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// On Redis error, fail-open
			c.Header("X-VerifyRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-VerifyRateLimit-Limit", strconv.Itoa(maxAttempts))
		c.Header("X-VerifyRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxAttempts)-val), 10))

		if val > int64(maxAttempts) {
			RLBlocked.WithLabelValues("verify:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "verification rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("verify:" + c.FullPath()).Inc()
		c.Next()
	}
}

func max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
