package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimiter is a fixed-window counter in redis. Requests are keyed by the
// authenticated user, or by client IP before authentication.
type RateLimiter struct {
	redisClient *redis.Client
	log         logrus.FieldLogger
}

func NewRateLimiter(client *redis.Client, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{redisClient: client, log: log}
}

func (rl *RateLimiter) Limit(keySuffix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := c.GetString(UserIDKey)
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", keySuffix, who)

		count, err := rl.redisClient.Incr(c, key).Result()
		if err != nil {
			// fail open
			rl.log.WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if count == 1 {
			rl.redisClient.Expire(c, key, window)
		}

		if count > int64(limit) {
			ttl, _ := rl.redisClient.TTL(c, key).Result()
			c.Header("Retry-After", fmt.Sprintf("%.0f", ttl.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": fmt.Sprintf("%.0f seconds", ttl.Seconds()),
			})
			return
		}
		c.Next()
	}
}
