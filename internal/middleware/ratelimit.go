package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hamxasajid/blogsite-core/internal/pkg/jwt"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimit caps anonymous clients at 50 requests per second per IP using
// a one-second counter bucket in redis. Requests carrying a valid token
// bypass the limit, as does everything when redis is unreachable. The token
// is parsed here because the middleware runs before OptionalAuth.
func RateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rateLimitExempt(c) || ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		bucket := fmt.Sprintf("blogsite:rate_limit:%s:%d", ip, time.Now().Unix())

		count, err := rdb.Incr(ctx, bucket).Result()
		switch {
		case err != nil:
			// fail open
		case count == 1:
			rdb.PExpire(ctx, bucket, rateLimitWindow+time.Second)
		case count > rateLimitMax:
			response.TooManyRequests(c, "Too many requests, slow down.")
			return
		}

		c.Next()
	}
}

func rateLimitExempt(c *gin.Context) bool {
	if IsAuthenticated(c) {
		return true
	}
	claims, err := jwt.Parse(extractToken(c))
	return err == nil && claims.UserID != ""
}
