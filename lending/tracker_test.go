package lending

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"tool_lending_tracker/db"
	"tool_lending_tracker/events"
	"tool_lending_tracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var clock = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func newTracker(t *testing.T) (*Tracker, *events.Recorder) {
	t.Helper()
	conn, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := db.NewRepo(conn)
	repo.Now = func() time.Time { return clock }
	rec := &events.Recorder{}
	return NewTracker(repo, rec, zap.NewNop()), rec
}

func addTool(t *testing.T, tr *Tracker, name string) models.Tool {
	t.Helper()
	ts, err := tr.AddTool(context.Background(), name, nil, 1)
	require.NoError(t, err)
	return ts[0]
}

func TestRequestApproveReturn_PublishesEvents(t *testing.T) {
	tr, rec := newTracker(t)
	ctx := context.Background()
	tool := addTool(t, tr, "Milwaukee - Grinder")

	req, err := tr.CreateRequest(ctx, tool.ID, "Ivan Petrov", 42)
	require.NoError(t, err)
	issue, _, err := tr.ApproveRequest(ctx, tool.ID, 42)
	require.NoError(t, err)
	_, err = tr.CompleteReturn(ctx, issue.ID)
	require.NoError(t, err)

	assert.Equal(t, []events.Type{
		events.RequestCreated, events.RequestApproved, events.ToolIssued, events.ToolReturned,
	}, rec.Types())

	created := rec.Events[0]
	assert.Equal(t, req.ID, created.RequestID)
	assert.Equal(t, "Milwaukee - Grinder", created.ToolName)
	assert.Equal(t, int64(42), created.ChatID)
	assert.Equal(t, issue.ID, rec.Events[3].IssueID)
}

func TestFailedTransition_PublishesNothing(t *testing.T) {
	tr, rec := newTracker(t)
	ctx := context.Background()
	tool := addTool(t, tr, "Drill")

	_, err := tr.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)
	_, err = tr.IssueTool(ctx, tool.ID, "Bob")
	assert.ErrorIs(t, err, db.ErrAlreadyIssued)

	_, _, err = tr.ApproveRequest(ctx, tool.ID, 1)
	assert.ErrorIs(t, err, db.ErrNoPendingRequest)

	assert.Equal(t, []events.Type{events.ToolIssued}, rec.Types())
}

func TestPublishFailure_DoesNotFailOperation(t *testing.T) {
	tr, rec := newTracker(t)
	rec.Err = errors.New("broker down")
	tool := addTool(t, tr, "Ladder")

	issue, err := tr.IssueTool(context.Background(), tool.ID, "Alice")
	require.NoError(t, err)
	assert.True(t, issue.Open())
}

func TestRejectFlows(t *testing.T) {
	tr, rec := newTracker(t)
	ctx := context.Background()
	tool := addTool(t, tr, "Vacuum")

	_, err := tr.CreateRequest(ctx, tool.ID, "Carol", 7)
	require.NoError(t, err)
	_, err = tr.RejectRequest(ctx, tool.ID, 7)
	require.NoError(t, err)

	issue, err := tr.IssueTool(ctx, tool.ID, "Dan")
	require.NoError(t, err)
	_, err = tr.RejectReturn(ctx, issue.ID)
	require.NoError(t, err)

	still, err := tr.BeginReturn(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, still.ID)

	assert.Equal(t, []events.Type{
		events.RequestCreated, events.RequestRejected, events.ToolIssued, events.ReturnRejected,
	}, rec.Types())
}

func TestListOverdue_DefaultThreshold(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	tool := addTool(t, tr, "Saw")

	tr.Repo().Now = func() time.Time { return clock.AddDate(0, 0, -8) }
	_, err := tr.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)
	tr.Repo().Now = func() time.Time { return clock }

	overdue, err := tr.ListOverdue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Saw", overdue[0].Tool.Name)
}

func TestReport(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	tool := addTool(t, tr, "Pyrometer")
	_, err := tr.IssueTool(ctx, tool.ID, "Alice")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.Report(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Issued")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pyrometer", rows[1][2])
}
