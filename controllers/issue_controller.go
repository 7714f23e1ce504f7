// controllers/issue_controller.go
package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"tool_lending_tracker/app"
	"tool_lending_tracker/report"

	"github.com/gin-gonic/gin"
)

type IssueController struct{ *Srv }

func NewIssueController(s *Srv) *IssueController { return &IssueController{Srv: s} }

// 管理员直接发放
func (ic *IssueController) IssueTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		EmployeeName string `json:"employeeName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rec, err := ic.Tracker.IssueTool(c.Request.Context(), id, in.EmployeeName)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// 归还第一步：查出当前未关闭的发放记录
func (ic *IssueController) BeginReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := ic.Tracker.BeginReturn(c.Request.Context(), id)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (ic *IssueController) CompleteReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := ic.Tracker.CompleteReturn(c.Request.Context(), id)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	if ic.Returns != nil {
		_ = ic.Returns.Delete(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, rec)
}

func (ic *IssueController) RejectReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := ic.Tracker.RejectReturn(c.Request.Context(), id)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	if ic.Returns != nil {
		_ = ic.Returns.Delete(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, rec)
}

func (ic *IssueController) ListIssued(c *gin.Context) {
	rs, err := ic.Tracker.ListIssued(c.Request.Context())
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rs})
}

func (ic *IssueController) ListOverdue(c *gin.Context) {
	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid days"})
			return
		}
		days = n
	}
	rs, err := ic.Tracker.ListOverdue(c.Request.Context(), days)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rs})
}

func (ic *IssueController) ListHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	hs, err := ic.Tracker.ListHistory(c.Request.Context(), limit)
	if err != nil {
		ic.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": hs})
}

func (ic *IssueController) Report(c *gin.Context) {
	var buf bytes.Buffer
	if err := ic.Tracker.Report(c.Request.Context(), &buf); err != nil {
		ic.respondErr(c, err)
		return
	}
	name := fmt.Sprintf("tools_%s.xlsx", ic.Tracker.Repo().Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}
