package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"tool_lending_tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTool_Twice(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Makita - Perforator")

	rec, err := r.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)
	assert.Nil(t, rec.ReturnDate)
	assert.Equal(t, models.ToolIssued, rec.Tool.Status)

	_, err = r.IssueTool(ctx, tool.ID, "Bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, ErrAlreadyIssued)

	assert.EqualValues(t, 1, countRows(t, r, &models.IssueRecord{}, "tool_id = ?", tool.ID))
	assert.EqualValues(t, 1, countRows(t, r, &models.HistoryEntry{}, "tool_id = ? AND action = ?", tool.ID, models.ActionIssue))
}

func TestIssueTool_Validation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.IssueTool(ctx, 999, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)

	tool := seedTool(t, r, "Bosch - Perforator")
	_, err = r.IssueTool(ctx, tool.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := r.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolAvailable, got.Status)
}

func TestCompleteReturn_OnlyOnce(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Milwaukee - Grinder")

	rec, err := r.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)

	closed, err := r.CompleteReturn(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ReturnDate)
	assert.Equal(t, models.ToolAvailable, closed.Tool.Status)

	_, err = r.CompleteReturn(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.EqualValues(t, 1, countRows(t, r, &models.HistoryEntry{}, "action = ?", models.ActionReturned))
}

func TestCompleteReturn_ToolNotIssued(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Hilti - Drill")

	rec, err := r.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)
	// status drifted away from the open record
	require.NoError(t, r.DB.Model(&models.Tool{}).Where("id = ?", tool.ID).Update("status", models.ToolAvailable).Error)

	_, err = r.CompleteReturn(ctx, rec.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	// rolled back: record still open, no history written
	open, err := r.GetOpenIssueForTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, open.ID)
	assert.Nil(t, open.ReturnDate)
	assert.EqualValues(t, 0, countRows(t, r, &models.HistoryEntry{}, "tool_id = ? AND action = ?", tool.ID, models.ActionReturned))
}

func TestCompleteReturn_UnknownRecord(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.CompleteReturn(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoOpenIssue)
}

func TestIssueReturnRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Drill")

	rec, err := r.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)

	// the return happens a day later
	later := testClock.Add(24 * time.Hour)
	r.Now = func() time.Time { return later }

	_, err = r.CompleteReturn(ctx, rec.ID)
	require.NoError(t, err)

	issued, err := r.ListIssued(ctx)
	require.NoError(t, err)
	for _, i := range issued {
		assert.NotEqual(t, tool.ID, i.ToolID)
	}

	hs, err := r.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	// newest first
	assert.Equal(t, models.ActionReturned, hs[0].Action)
	assert.Equal(t, models.ActionIssue, hs[1].Action)
	assert.Equal(t, "Alice", hs[0].EmployeeName)
	require.NotNil(t, hs[0].Tool)
	assert.Equal(t, "Drill", hs[0].Tool.Name)
}

func TestBeginReturn(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Ladder - 6 steps")

	_, err := r.BeginReturn(ctx, tool.ID)
	assert.ErrorIs(t, err, ErrNoOpenIssue)

	rec, err := r.IssueTool(ctx, tool.ID, "Carol")
	require.NoError(t, err)

	got, err := r.BeginReturn(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Carol", got.EmployeeName)

	// nothing was written
	assert.EqualValues(t, 1, countRows(t, r, &models.IssueRecord{}, "return_date IS NULL"))
}

func TestRejectReturn_LeavesStateUnchanged(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Laser level")

	rec, err := r.IssueTool(ctx, tool.ID, "Dan")
	require.NoError(t, err)

	got, err := r.RejectReturn(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReturnDate)

	open, err := r.GetOpenIssueForTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, open.ID)
	tl, err := r.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToolIssued, tl.Status)

	_, err = r.CompleteReturn(ctx, rec.ID)
	require.NoError(t, err)
	_, err = r.RejectReturn(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOneOpenIssuePerTool_EnforcedByIndex(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Saw")

	_, err := r.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)

	// bypass the repo to prove the store itself refuses a second open row
	err = r.DB.Create(&models.IssueRecord{ToolID: tool.ID, EmployeeName: "Eve", IssueDate: testClock}).Error
	assert.Error(t, err)
}

func TestIssueAfterReturn(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tool := seedTool(t, r, "Extension cord - 50m")

	for i := 0; i < 3; i++ {
		rec, err := r.IssueTool(ctx, tool.ID, "Frank")
		require.NoError(t, err)
		_, err = r.CompleteReturn(ctx, rec.ID)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, countRows(t, r, &models.IssueRecord{}, "return_date IS NOT NULL"))
	assert.EqualValues(t, 0, countRows(t, r, &models.IssueRecord{}, "return_date IS NULL"))
}

func TestStorageErrorWrapping(t *testing.T) {
	err := classify("op", errors.New("disk full"))
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "op", se.Op)
	assert.Contains(t, err.Error(), "disk full")

	assert.Same(t, ErrAlreadyIssued, classify("op", ErrAlreadyIssued))
	assert.Nil(t, classify("op", nil))
}
