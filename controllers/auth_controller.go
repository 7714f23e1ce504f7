package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"tool_lending_tracker/app"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// Login 管理员登录：机器人下发的一次性验证码，或配置的 ADMIN_TOKEN
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		AdminID string `json:"adminId" binding:"required"`
		Code    string `json:"code"`
		Token   string `json:"token"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if ac.AppSess == nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "sessions unavailable"})
		return
	}
	ctx := c.Request.Context()
	id := strings.TrimSpace(in.AdminID)
	ok := false
	if ac.Cfg.IsAdmin(id) {
		switch {
		case in.Code != "" && ac.Logins != nil:
			var err error
			if ok, err = ac.Logins.Redeem(ctx, id, strings.TrimSpace(in.Code)); err != nil {
				ac.respondErr(c, err)
				return
			}
		case in.Token != "" && ac.Cfg.AdminToken != "":
			ok = subtle.ConstantTimeCompare([]byte(in.Token), []byte(ac.Cfg.AdminToken)) == 1
		}
	}
	if !ok {
		ac.Log.Info("admin login rejected", zap.String("admin_id", id), zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid credentials"})
		return
	}

	sid := uuid.NewString()
	if err := ac.AppSess.Create(ctx, sid, id); err != nil {
		ac.respondErr(c, err)
		return
	}
	ac.setAppCookie(c.Writer, sid, ac.AppSess.TTL())
	ac.Log.Info("admin logged in", zap.String("admin_id", id))
	c.JSON(http.StatusOK, app.H{"adminId": id})
}

// Logout 删 Redis 会话，Cookie 置空
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" && ac.AppSess != nil {
		_ = ac.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	ac.setAppCookie(c.Writer, "", -1)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{"adminId": app.AdminID(c)})
}
