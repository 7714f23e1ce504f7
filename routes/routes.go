package routes

import (
	"net/http"

	"tool_lending_tracker/app"
	"tool_lending_tracker/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	toolCtl := controllers.NewToolController(s)
	reqCtl := controllers.NewRequestController(s)
	issueCtl := controllers.NewIssueController(s)
	authCtl := controllers.NewAuthController(s)

	// 复用的中间件
	limitMW := app.RateLimit(a.Limiter)
	authMW := app.AuthRequired(a.Sessions)
	adminMW := app.AdminOnly(a.Config.IsAdmin)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 公开：查询
	// ------------------------------
	api := r.Group("/api", limitMW)
	{
		api.GET("/tools", toolCtl.ListTools)
		api.GET("/tools/groups", toolCtl.ToolGroups)
		api.GET("/tools/search", toolCtl.SearchTools) // ?q=
		api.GET("/tools/:id", toolCtl.GetTool)
		api.GET("/tools/:id/return", issueCtl.BeginReturn)

		api.GET("/issued", issueCtl.ListIssued)
		api.GET("/overdue", issueCtl.ListOverdue) // ?days=
		api.GET("/history", issueCtl.ListHistory) // ?limit=

		api.POST("/requests", app.CallerRequired(), reqCtl.CreateRequest)
	}

	// ------------------------------
	// 管理员登录 / 登出
	// ------------------------------
	auth := r.Group("/api/auth", limitMW)
	{
		auth.POST("/login", authCtl.Login)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/me", authMW, adminMW, authCtl.Me)
	}

	// ------------------------------
	// 仅管理员（会话 Cookie）
	// ------------------------------
	admin := r.Group("/api", limitMW, authMW, adminMW)
	{
		admin.POST("/tools", toolCtl.CreateTool)
		admin.POST("/tools/:id/issue", issueCtl.IssueTool)

		admin.GET("/requests", reqCtl.ListRequests) // ?status=
		admin.POST("/requests/approve", reqCtl.Approve)
		admin.POST("/requests/reject", reqCtl.Reject)

		admin.POST("/issues/:id/return", issueCtl.CompleteReturn)
		admin.POST("/issues/:id/return/reject", issueCtl.RejectReturn)

		admin.GET("/reports/issued.xlsx", issueCtl.Report)
	}

	// ------------------------------
	// Telegram webhook (needs Redis for chat state)
	// ------------------------------
	if a.Bot != nil && a.Chats != nil && a.Config.WebhookSecret != "" {
		tg := controllers.NewTelegramController(s)
		r.POST("/webhook/:secret", tg.Webhook)
	}
}
