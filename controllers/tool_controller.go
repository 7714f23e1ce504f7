package controllers

import (
	"net/http"

	"tool_lending_tracker/app"

	"github.com/gin-gonic/gin"
)

type ToolController struct{ *Srv }

func NewToolController(s *Srv) *ToolController { return &ToolController{Srv: s} }

func (tc *ToolController) ListTools(c *gin.Context) {
	ts, err := tc.Tracker.ListTools(c.Request.Context())
	if err != nil {
		tc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ts})
}

func (tc *ToolController) ToolGroups(c *gin.Context) {
	gs, err := tc.Tracker.ToolGroups(c.Request.Context())
	if err != nil {
		tc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": gs})
}

func (tc *ToolController) SearchTools(c *gin.Context) {
	ts, err := tc.Tracker.SearchTools(c.Request.Context(), c.Query("q"))
	if err != nil {
		tc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ts})
}

func (tc *ToolController) GetTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := tc.Tracker.GetTool(c.Request.Context(), id)
	if err != nil {
		tc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// 管理员添加工具，quantity 件各占一行
func (tc *ToolController) CreateTool(c *gin.Context) {
	var in struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
		Quantity    int     `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	ts, err := tc.Tracker.AddTool(c.Request.Context(), in.Name, in.Description, in.Quantity)
	if err != nil {
		tc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"items": ts})
}
