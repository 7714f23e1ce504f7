package app

import (
	"net/http"
	"strings"

	"tool_lending_tracker/session"

	"github.com/gin-gonic/gin"
)

// CallerHeader carries the employee's chat id. It identifies, it does not
// authenticate; admin routes use the session cookie instead.
const CallerHeader = "X-Caller-ID"

// Caller reads the caller id header into the context.
func Caller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(CallerHeader)); id != "" {
			c.Set("callerID", id)
		}
		c.Next()
	}
}

func CallerID(c *gin.Context) string {
	v, _ := c.Get("callerID")
	id, _ := v.(string)
	return id
}

func CallerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "missing " + CallerHeader})
			return
		}
		c.Next()
	}
}

const AppSessionCookie = "app_session"

// AuthRequired resolves the app_session cookie to a logged-in admin id.
func AuthRequired(appSess *session.AppSessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if appSess == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "sessions unavailable"})
			return
		}
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}
		c.Set("sessionID", ck.Value)
		c.Set("adminID", as.AdminID)
		c.Next()
	}
}

func AdminID(c *gin.Context) string {
	v, _ := c.Get("adminID")
	id, _ := v.(string)
	return id
}

// AdminOnly re-checks the session's admin against the config predicate, so
// removing an id from the config locks out its live sessions.
func AdminOnly(isAdmin func(string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := AdminID(c)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !isAdmin(id) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Set("isAdmin", true)
		c.Next()
	}
}
