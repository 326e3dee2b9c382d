package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const rateLimitKeyPrefix = "shortlink:ratelimit:"

// RateLimit allows maxVisitCount requests per client IP in each expiration window.
// Redis failures let the request through so an outage of the limiter does not take
// redirects down with it.
func RateLimit(client *redis.Client, expiration time.Duration, maxVisitCount int64, logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("module", "middlewares/ratelimit")

	return func(c *gin.Context) {
		ip := c.ClientIP()

		newVisitCount, ttl, err := limit(c.Request.Context(), rateLimitKeyPrefix+ip, client, expiration)
		if err != nil {
			log.WithError(err).WithField("ip", ip).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		remaining := maxVisitCount - newVisitCount
		if remaining < 0 {
			remaining = 0
		}
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))
		if newVisitCount > maxVisitCount {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func limit(ctx context.Context, key string, client *redis.Client, expiration time.Duration) (int64, time.Duration, error) {
	pipe := client.Pipeline()
	setNX := pipe.SetNX(ctx, key, 0, expiration)
	incr := pipe.Incr(ctx, key)
	getTTL := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	if err := setNX.Err(); err != nil {
		return 0, 0, err
	}
	newCount, err := incr.Result()
	if err != nil {
		return 0, 0, err
	}
	ttl, err := getTTL.Result()
	if err != nil {
		return 0, 0, err
	}
	return newCount, ttl, nil
}
