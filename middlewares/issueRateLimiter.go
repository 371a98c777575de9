package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const issueLimitWindow = 24 * time.Hour

// IssueRateLimiter caps how many issues one user may report per day. It must
// run after RequireAuth.
func IssueRateLimiter(client redis.UniversalClient, prefix string, limit int, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + userID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			log.Errorw("rate limiter increment failed", "key", userKey, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			return
		}

		// Start the window on the first issue of the day.
		if count == 1 {
			if err := client.Expire(ctx, userKey, issueLimitWindow).Err(); err != nil {
				log.Errorw("rate limiter expire failed", "key", userKey, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Daily issue limit reached",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
