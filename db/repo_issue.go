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

// IssueTool hands a tool out without a request: available -> issued.
func (r *Repo) IssueTool(ctx context.Context, toolID uint, employee string) (*models.IssueRecord, error) {
	employee = strings.TrimSpace(employee)
	if employee == "" {
		return nil, fmt.Errorf("%w: employee name is required", ErrInvalidInput)
	}
	var rec *models.IssueRecord
	err := r.inTx(ctx, "issue tool", func(tx *gorm.DB) error {
		t, err := lockTool(tx, toolID)
		if err != nil {
			return err
		}
		rec, err = r.openIssue(tx, t, employee)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// BeginReturn looks up the open record of a tool so the caller can collect
// return evidence. Nothing is written.
func (r *Repo) BeginReturn(ctx context.Context, toolID uint) (*models.IssueRecord, error) {
	return r.GetOpenIssueForTool(ctx, toolID)
}

func lockIssue(tx *gorm.DB, issueID uint) (*models.IssueRecord, error) {
	var rec models.IssueRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", issueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenIssue
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CompleteReturn closes an open record: issued -> available. A second call on
// the same record fails with ErrNoOpenIssue.
func (r *Repo) CompleteReturn(ctx context.Context, issueID uint) (*models.IssueRecord, error) {
	var rec *models.IssueRecord
	err := r.inTx(ctx, "complete return", func(tx *gorm.DB) error {
		var err error
		if rec, err = lockIssue(tx, issueID); err != nil {
			return err
		}
		if g := models.CanReturn(*rec); !g.Allowed {
			return wrapGuard(ErrNoOpenIssue, g)
		}
		now := r.now()
		res := tx.Model(&models.IssueRecord{}).
			Where("id = ? AND return_date IS NULL", rec.ID).
			Update("return_date", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNoOpenIssue
		}
		rec.ReturnDate = &now

		ok, err := setToolStatus(tx, rec.ToolID, models.ToolIssued, models.ToolAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: tool %d is not issued", ErrInvalidState, rec.ToolID)
		}
		if err := appendHistory(tx, now, rec.ToolID, models.ActionReturned, rec.EmployeeName); err != nil {
			return err
		}
		t, err := lockTool(tx, rec.ToolID)
		if err != nil {
			return err
		}
		rec.Tool = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RejectReturn only checks that the record is still open: the submitted
// evidence is discarded by the caller and the employee resubmits.
func (r *Repo) RejectReturn(ctx context.Context, issueID uint) (*models.IssueRecord, error) {
	var rec models.IssueRecord
	err := r.DB.WithContext(ctx).Preload("Tool").First(&rec, "id = ?", issueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenIssue
	}
	if err != nil {
		return nil, classify("reject return", err)
	}
	if g := models.CanReturn(rec); !g.Allowed {
		return nil, wrapGuard(ErrNoOpenIssue, g)
	}
	return &rec, nil
}
