package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/utils"
)

// RateLimitMiddleware denies requests once the key derived from the
// request exhausts its window. keyFunc returning "" skips limiting
// for that request.
func RateLimitMiddleware(limiter *utils.RateLimiter, keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			c.Next()
			return
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, please try again later"})
			return
		}
		c.Next()
	}
}
