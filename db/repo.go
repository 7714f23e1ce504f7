package db

import (
	"context"
	"errors"
	"time"

	"tool_lending_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultLoanDays = 7

type Repo struct {
	DB *gorm.DB

	// Now is the clock used for every timestamp the repo writes.
	Now      func() time.Time
	LoanDays int
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{
		DB:       db,
		Now:      func() time.Time { return time.Now().UTC() },
		LoanDays: DefaultLoanDays,
	}
}

func (r *Repo) now() time.Time { return r.Now().UTC() }

func (r *Repo) dueFrom(t time.Time) time.Time {
	days := r.LoanDays
	if days <= 0 {
		days = DefaultLoanDays
	}
	return t.AddDate(0, 0, days)
}

// inTx runs one logical operation: reads, guard checks, writes and the
// history append commit or roll back together.
func (r *Repo) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	return classify(op, r.DB.WithContext(ctx).Transaction(fn))
}

func lockTool(tx *gorm.DB, toolID uint) (*models.Tool, error) {
	var t models.Tool
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", toolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func hasOpenIssue(tx *gorm.DB, toolID uint) (bool, error) {
	var n int64
	if err := tx.Model(&models.IssueRecord{}).
		Where("tool_id = ? AND return_date IS NULL", toolID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// setToolStatus flips status only from the expected one.
func setToolStatus(tx *gorm.DB, toolID uint, from, to models.ToolStatus) (bool, error) {
	res := tx.Model(&models.Tool{}).
		Where("id = ? AND status = ?", toolID, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func appendHistory(tx *gorm.DB, at time.Time, toolID uint, action, employee string) error {
	return tx.Create(&models.HistoryEntry{
		ToolID:       toolID,
		Action:       action,
		EmployeeName: employee,
		Timestamp:    at,
	}).Error
}

// openIssue creates the issue record and flips the tool; shared by direct
// issue and request approval.
func (r *Repo) openIssue(tx *gorm.DB, tool *models.Tool, employee string) (*models.IssueRecord, error) {
	open, err := hasOpenIssue(tx, tool.ID)
	if err != nil {
		return nil, err
	}
	if g := models.CanIssue(*tool, open); !g.Allowed {
		return nil, wrapGuard(ErrAlreadyIssued, g)
	}
	ok, err := setToolStatus(tx, tool.ID, models.ToolAvailable, models.ToolIssued)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyIssued
	}

	now := r.now()
	due := r.dueFrom(now)
	rec := &models.IssueRecord{
		ToolID:             tool.ID,
		EmployeeName:       employee,
		IssueDate:          now,
		ExpectedReturnDate: &due,
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, err
	}
	if err := appendHistory(tx, now, tool.ID, models.ActionIssue, employee); err != nil {
		return nil, err
	}
	tool.Status = models.ToolIssued
	rec.Tool = tool
	return rec, nil
}
