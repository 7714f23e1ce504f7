package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tool_lending_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRequest records a pending request. The tool status is not touched;
// it only changes when an admin approves.
func (r *Repo) CreateRequest(ctx context.Context, toolID uint, employee string, chatID int64) (*models.IssueRequest, error) {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return nil, fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}
	var req *models.IssueRequest
	err := r.inTx(ctx, "create request", func(tx *gorm.DB) error {
		t, err := lockTool(tx, toolID)
		if err != nil {
			return err
		}
		if g := models.CanRequest(*t); !g.Allowed {
			return wrapGuard(ErrAlreadyIssued, g)
		}
		var n int64
		if err := tx.Model(&models.IssueRequest{}).
			Where("tool_id = ? AND chat_id = ? AND status = ?", toolID, chatID, models.RequestPending).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateRequest
		}
		req = &models.IssueRequest{
			ToolID:       toolID,
			EmployeeName: employee,
			ChatID:       chatID,
			RequestDate:  r.now(),
			Status:       models.RequestPending,
		}
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		req.Tool = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func pendingRequest(tx *gorm.DB, toolID uint, chatID int64, lock bool) (*models.IssueRequest, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req models.IssueRequest
	err := q.Where("tool_id = ? AND chat_id = ? AND status = ?", toolID, chatID, models.RequestPending).
		Order("id ASC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPendingRequest
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestInfo returns the pending request of chatID for toolID.
func (r *Repo) GetRequestInfo(ctx context.Context, toolID uint, chatID int64) (*models.IssueRequest, error) {
	req, err := pendingRequest(r.DB.WithContext(ctx).Preload("Tool"), toolID, chatID, false)
	if err != nil {
		return nil, classify("get request", err)
	}
	return req, nil
}

// decide moves a pending request out of pending exactly once.
func decide(tx *gorm.DB, req *models.IssueRequest, to models.RequestStatus) error {
	if g := models.CanDecide(*req); !g.Allowed {
		return wrapGuard(ErrInvalidState, g)
	}
	res := tx.Model(&models.IssueRequest{}).
		Where("id = ? AND status = ?", req.ID, models.RequestPending).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNoPendingRequest
	}
	req.Status = to
	return nil
}

// ApproveRequest issues the tool to the requester. The tool is re-validated
// here, so a second request for an already issued tool fails and stays pending.
func (r *Repo) ApproveRequest(ctx context.Context, toolID uint, chatID int64) (*models.IssueRecord, *models.IssueRequest, error) {
	var (
		rec *models.IssueRecord
		req *models.IssueRequest
	)
	err := r.inTx(ctx, "approve request", func(tx *gorm.DB) error {
		var err error
		if req, err = pendingRequest(tx, toolID, chatID, true); err != nil {
			return err
		}
		t, err := lockTool(tx, toolID)
		if err != nil {
			return err
		}
		if rec, err = r.openIssue(tx, t, req.EmployeeName); err != nil {
			return err
		}
		if err := decide(tx, req, models.RequestApproved); err != nil {
			return err
		}
		req.Tool = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, req, nil
}

func (r *Repo) RejectRequest(ctx context.Context, toolID uint, chatID int64) (*models.IssueRequest, error) {
	var req *models.IssueRequest
	err := r.inTx(ctx, "reject request", func(tx *gorm.DB) error {
		var err error
		if req, err = pendingRequest(tx, toolID, chatID, true); err != nil {
			return err
		}
		if err := decide(tx, req, models.RequestRejected); err != nil {
			return err
		}
		return appendHistory(tx, r.now(), toolID, models.ActionRejected, req.EmployeeName)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequests returns requests newest first; an empty status means all.
func (r *Repo) ListRequests(ctx context.Context, status models.RequestStatus) ([]models.IssueRequest, error) {
	q := r.DB.WithContext(ctx).Preload("Tool").Order("request_date DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rs []models.IssueRequest
	err := q.Find(&rs).Error
	return rs, classify("list requests", err)
}
