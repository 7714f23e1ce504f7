package controllers

import (
	"net/http"
	"strconv"

	"tool_lending_tracker/app"
	"tool_lending_tracker/models"

	"github.com/gin-gonic/gin"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

type decisionInput struct {
	ToolID uint  `json:"toolId" binding:"required"`
	ChatID int64 `json:"chatId" binding:"required"`
}

// 员工提交领用申请；chatId 取自调用方 ID，不能代他人申请
func (rc *RequestController) CreateRequest(c *gin.Context) {
	var in struct {
		ToolID       uint   `json:"toolId" binding:"required"`
		EmployeeName string `json:"employeeName" binding:"required"`
		ChatID       int64  `json:"chatId"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	caller, err := strconv.ParseInt(app.CallerID(c), 10, 64)
	if err != nil || caller == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "caller id must be a chat id"})
		return
	}
	if in.ChatID != 0 && in.ChatID != caller {
		c.JSON(http.StatusForbidden, app.H{"error": "chatId does not match caller"})
		return
	}
	in.ChatID = caller
	req, err := rc.Tracker.CreateRequest(c.Request.Context(), in.ToolID, in.EmployeeName, in.ChatID)
	if err != nil {
		rc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (rc *RequestController) ListRequests(c *gin.Context) {
	status := models.RequestStatus(c.Query("status"))
	switch status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "unknown status"})
		return
	}
	rs, err := rc.Tracker.ListRequests(c.Request.Context(), status)
	if err != nil {
		rc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rs})
}

func (rc *RequestController) Approve(c *gin.Context) {
	var in decisionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	rec, req, err := rc.Tracker.ApproveRequest(c.Request.Context(), in.ToolID, in.ChatID)
	if err != nil {
		rc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"issue": rec, "request": req})
}

func (rc *RequestController) Reject(c *gin.Context) {
	var in decisionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	req, err := rc.Tracker.RejectRequest(c.Request.Context(), in.ToolID, in.ChatID)
	if err != nil {
		rc.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
