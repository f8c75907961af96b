package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/chatter/internal/pkg/response"
)

// KeyFunc picks the bucket for a request
type KeyFunc func(c *gin.Context) string

// ByUserOrIP keys authenticated requests by user id and the rest by client IP
func ByUserOrIP(c *gin.Context) string {
	if id := c.GetString("userID"); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// Middleware rejects requests over the limit with 429
func Middleware(lim *RateLimiter, keyFn ...KeyFunc) gin.HandlerFunc {
	key := ByUserOrIP
	if len(keyFn) > 0 && keyFn[0] != nil {
		key = keyFn[0]
	}

	return func(c *gin.Context) {
		k := key(c)
		if lim.Allow(k) {
			c.Next()
			return
		}

		wait := lim.RetryAfter(k)
		seconds := int(math.Ceil(wait.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
		response.ErrorWithData(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", "RATE_LIMITED", gin.H{
			"retry_after": seconds,
			"reset_time":  time.Now().Add(wait).UTC().Format(time.RFC3339),
		})
		c.Abort()
	}
}
