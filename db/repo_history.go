package db

import (
	"context"

	"tool_lending_tracker/models"

	"gorm.io/gorm"
)

// AppendHistory writes a standalone ledger entry. Transitions append their
// own entries inside their transaction instead of calling this.
func (r *Repo) AppendHistory(ctx context.Context, toolID uint, action, employee string) error {
	return r.inTx(ctx, "append history", func(tx *gorm.DB) error {
		if _, err := lockTool(tx, toolID); err != nil {
			return err
		}
		return appendHistory(tx, r.now(), toolID, action, employee)
	})
}

// ListHistory returns entries newest first; limit <= 0 means all.
func (r *Repo) ListHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	q := r.DB.WithContext(ctx).Preload("Tool").Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var hs []models.HistoryEntry
	err := q.Find(&hs).Error
	return hs, classify("list history", err)
}
