package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter throttles login attempts per client IP. Signature recovery is
// cheap but the provisioning path touches storage, so the auth endpoints get
// their own budget.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map // client IP -> *rate.Limiter
}

// NewRateLimiter creates a per-IP limiter allowing rps requests per second
// with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit: rate.Limit(rps),
		burst: burst,
	}
}

// Middleware returns a gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, _ := rl.limiters.LoadOrStore(c.ClientIP(), rate.NewLimiter(rl.limit, rl.burst))
		if !entry.(*rate.Limiter).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
