package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tool_lending_tracker/models"

	"gorm.io/gorm"
)

// Tools

func (r *Repo) ListTools(ctx context.Context) ([]models.Tool, error) {
	var ts []models.Tool
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&ts).Error
	return ts, classify("list tools", err)
}

func (r *Repo) GetTool(ctx context.Context, id uint) (*models.Tool, error) {
	var t models.Tool
	err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, classify("get tool", err)
	}
	return &t, nil
}

// CreateTools inserts quantity units named name, one row per physical unit.
func (r *Repo) CreateTools(ctx context.Context, name string, description *string, quantity int) ([]models.Tool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tool name is required", ErrInvalidInput)
	}
	if quantity <= 0 {
		quantity = 1
	}
	ts := make([]models.Tool, quantity)
	for i := range ts {
		ts[i] = models.Tool{Name: name, Description: description, Status: models.ToolAvailable, Quantity: 1}
	}
	err := r.inTx(ctx, "create tools", func(tx *gorm.DB) error {
		return tx.Create(&ts).Error
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *Repo) SearchTools(ctx context.Context, q string) ([]models.Tool, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return r.ListTools(ctx)
	}
	var ts []models.Tool
	like := "%" + strings.ToLower(q) + "%"
	err := r.DB.WithContext(ctx).
		Where("LOWER(name) LIKE ?", like).
		Order("name ASC, id ASC").
		Find(&ts).Error
	return ts, classify("search tools", err)
}

// ToolGroups folds units with the same name, ordered by name.
func (r *Repo) ToolGroups(ctx context.Context) ([]models.ToolGroup, error) {
	ts, err := r.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var groups []models.ToolGroup
	for _, t := range ts {
		i, ok := idx[t.Name]
		if !ok {
			i = len(groups)
			idx[t.Name] = i
			groups = append(groups, models.ToolGroup{Name: t.Name})
		}
		g := &groups[i]
		g.Total++
		g.ToolIDs = append(g.ToolIDs, t.ID)
		if t.Available() {
			g.Available++
			g.AvailableIDs = append(g.AvailableIDs, t.ID)
		}
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Name < groups[b].Name })
	return groups, nil
}

type CatalogEntry struct {
	Name     string
	Quantity int
}

// SeedCatalog fills an empty tools table; a non-empty table is left alone.
func (r *Repo) SeedCatalog(ctx context.Context, entries []CatalogEntry) (int, error) {
	inserted := 0
	err := r.inTx(ctx, "seed catalog", func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Tool{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, e := range entries {
			for i := 0; i < max(e.Quantity, 1); i++ {
				t := models.Tool{Name: e.Name, Status: models.ToolAvailable, Quantity: 1}
				if err := tx.Create(&t).Error; err != nil {
					return err
				}
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

// Issue records

// ListIssued returns every open record with its tool, soonest due first.
func (r *Repo) ListIssued(ctx context.Context) ([]models.IssueRecord, error) {
	var rs []models.IssueRecord
	err := r.DB.WithContext(ctx).
		Preload("Tool").
		Where("return_date IS NULL").
		Order("expected_return_date ASC, id ASC").
		Find(&rs).Error
	return rs, classify("list issued", err)
}

func (r *Repo) GetOpenIssueForTool(ctx context.Context, toolID uint) (*models.IssueRecord, error) {
	var rec models.IssueRecord
	err := r.DB.WithContext(ctx).
		Preload("Tool").
		Where("tool_id = ? AND return_date IS NULL", toolID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenIssue
	}
	if err != nil {
		return nil, classify("get open issue", err)
	}
	return &rec, nil
}

// ListOverdue returns open records past their expected return date; records
// without one are overdue once older than thresholdDays.
func (r *Repo) ListOverdue(ctx context.Context, thresholdDays int) ([]models.IssueRecord, error) {
	if thresholdDays < 0 {
		thresholdDays = 0
	}
	now := r.now()
	cutoff := now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)

	var rs []models.IssueRecord
	err := r.DB.WithContext(ctx).
		Preload("Tool").
		Where("return_date IS NULL").
		Where(r.DB.
			Where("expected_return_date IS NOT NULL AND expected_return_date < ?", now).
			Or("expected_return_date IS NULL AND issue_date < ?", cutoff)).
		Order("issue_date ASC, id ASC").
		Find(&rs).Error
	return rs, classify("list overdue", err)
}
