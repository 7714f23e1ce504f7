// app/seenmw.go
package app

import (
	"net/http"

	"tool_lending_tracker/session"

	"github.com/gin-gonic/gin"
)

// RateLimit throttles callers per window; anonymous requests are keyed by IP.
func RateLimit(l *session.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
