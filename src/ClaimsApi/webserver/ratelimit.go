package webserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
)

// RateLimitByIP counts requests per client IP in a shared redis window, so
// the limit holds across every instance of the service. Each scope gets its
// own bucket: endpoints with different limits never drain each other.
// Exceeding a limit has no side effects beyond the rejected request.
func RateLimitByIP(store data.Store, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, _, err := data.RateLimit(c, store, "ip:"+scope+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Printf("rate limit check failed for %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"err": "rate limiter unavailable"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"err": "too many requests"})
			return
		}
		c.Next()
	}
}
