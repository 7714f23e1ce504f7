// controllers/srv.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tool_lending_tracker/app"
	"tool_lending_tracker/db"
	"tool_lending_tracker/lending"
	"tool_lending_tracker/session"
	"tool_lending_tracker/telegram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Srv struct {
	Tracker *lending.Tracker
	Cfg     app.Config
	Log     *zap.Logger
	Bot     telegram.Sender
	Chats   *session.ChatStore
	Returns *session.ReturnStore
	Limiter *session.Limiter

	AppSess *session.AppSessionStore
	Logins  *session.LoginCodes
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Tracker: a.Tracker,
		Cfg:     a.Config,
		Log:     a.Log,
		Bot:     a.Bot,
		Chats:   a.Chats,
		Returns: a.Returns,
		Limiter: a.Limiter,
		AppSess: a.Sessions,
		Logins:  a.Logins,
	}
}

// --- helpers ---

func idParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(n), true
}

// 统一设置业务会话 Cookie；maxAge < 0 清除
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	age := int(maxAge / time.Second)
	if maxAge < 0 {
		age = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
		MaxAge:   age,
	})
}

// respondErr maps store errors onto status codes.
func (s *Srv) respondErr(c *gin.Context, err error) {
	var se *db.StorageError
	switch {
	case errors.Is(err, db.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidState):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case errors.As(err, &se):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "storage unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}
