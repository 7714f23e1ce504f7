// Package lending is the entry point the front ends use: it runs the store
// operations, logs each transition and publishes an event once it committed.
package lending

import (
	"context"
	"io"
	"time"

	"tool_lending_tracker/db"
	"tool_lending_tracker/events"
	"tool_lending_tracker/models"
	"tool_lending_tracker/report"

	"go.uber.org/zap"
)

type Tracker struct {
	repo *db.Repo
	pub  events.Publisher
	log  *zap.Logger

	// OverdueDays applies to records without an expected return date.
	OverdueDays int
}

func NewTracker(repo *db.Repo, pub events.Publisher, log *zap.Logger) *Tracker {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{repo: repo, pub: pub, log: log, OverdueDays: 7}
}

func (t *Tracker) Repo() *db.Repo { return t.repo }

func (t *Tracker) publish(ctx context.Context, ev events.ToolEvent) {
	if err := t.pub.Publish(ctx, ev); err != nil {
		t.log.Warn("publish event failed",
			zap.String("type", string(ev.Type)),
			zap.Uint("tool_id", ev.ToolID),
			zap.Error(err))
	}
}

func (t *Tracker) event(typ events.Type, toolID uint, tool *models.Tool) events.ToolEvent {
	ev := events.New(typ, toolID, t.repo.Now())
	if tool != nil {
		ev.ToolName = tool.Name
	}
	return ev
}

// Catalog

func (t *Tracker) AddTool(ctx context.Context, name string, description *string, quantity int) ([]models.Tool, error) {
	ts, err := t.repo.CreateTools(ctx, name, description, quantity)
	if err != nil {
		return nil, err
	}
	t.log.Info("tools added", zap.String("name", name), zap.Int("units", len(ts)))
	return ts, nil
}

func (t *Tracker) SeedCatalog(ctx context.Context, entries []db.CatalogEntry) (int, error) {
	n, err := t.repo.SeedCatalog(ctx, entries)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.log.Info("catalog seeded", zap.Int("units", n))
	}
	return n, nil
}

func (t *Tracker) ListTools(ctx context.Context) ([]models.Tool, error) {
	return t.repo.ListTools(ctx)
}

func (t *Tracker) GetTool(ctx context.Context, id uint) (*models.Tool, error) {
	return t.repo.GetTool(ctx, id)
}

func (t *Tracker) SearchTools(ctx context.Context, q string) ([]models.Tool, error) {
	return t.repo.SearchTools(ctx, q)
}

func (t *Tracker) ToolGroups(ctx context.Context) ([]models.ToolGroup, error) {
	return t.repo.ToolGroups(ctx)
}

// Requests

func (t *Tracker) CreateRequest(ctx context.Context, toolID uint, employee string, chatID int64) (*models.IssueRequest, error) {
	req, err := t.repo.CreateRequest(ctx, toolID, employee, chatID)
	if err != nil {
		t.log.Debug("create request refused", zap.Uint("tool_id", toolID), zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, err
	}
	t.log.Info("request created",
		zap.Uint("request_id", req.ID),
		zap.Uint("tool_id", toolID),
		zap.String("employee", req.EmployeeName))

	ev := t.event(events.RequestCreated, toolID, req.Tool)
	ev.RequestID, ev.Employee, ev.ChatID = req.ID, req.EmployeeName, chatID
	t.publish(ctx, ev)
	return req, nil
}

func (t *Tracker) GetRequestInfo(ctx context.Context, toolID uint, chatID int64) (*models.IssueRequest, error) {
	return t.repo.GetRequestInfo(ctx, toolID, chatID)
}

func (t *Tracker) ListRequests(ctx context.Context, status models.RequestStatus) ([]models.IssueRequest, error) {
	return t.repo.ListRequests(ctx, status)
}

func (t *Tracker) ApproveRequest(ctx context.Context, toolID uint, chatID int64) (*models.IssueRecord, *models.IssueRequest, error) {
	rec, req, err := t.repo.ApproveRequest(ctx, toolID, chatID)
	if err != nil {
		t.log.Info("approve refused", zap.Uint("tool_id", toolID), zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, nil, err
	}
	t.log.Info("request approved",
		zap.Uint("request_id", req.ID),
		zap.Uint("issue_id", rec.ID),
		zap.Uint("tool_id", toolID))

	ev := t.event(events.RequestApproved, toolID, req.Tool)
	ev.RequestID, ev.IssueID, ev.Employee, ev.ChatID = req.ID, rec.ID, req.EmployeeName, chatID
	t.publish(ctx, ev)

	ev = t.event(events.ToolIssued, toolID, rec.Tool)
	ev.RequestID, ev.IssueID, ev.Employee, ev.ChatID = req.ID, rec.ID, rec.EmployeeName, chatID
	t.publish(ctx, ev)
	return rec, req, nil
}

func (t *Tracker) RejectRequest(ctx context.Context, toolID uint, chatID int64) (*models.IssueRequest, error) {
	req, err := t.repo.RejectRequest(ctx, toolID, chatID)
	if err != nil {
		t.log.Info("reject refused", zap.Uint("tool_id", toolID), zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, err
	}
	t.log.Info("request rejected", zap.Uint("request_id", req.ID), zap.Uint("tool_id", toolID))

	ev := t.event(events.RequestRejected, toolID, req.Tool)
	ev.RequestID, ev.Employee, ev.ChatID = req.ID, req.EmployeeName, chatID
	t.publish(ctx, ev)
	return req, nil
}

// Issue and return

func (t *Tracker) IssueTool(ctx context.Context, toolID uint, employee string) (*models.IssueRecord, error) {
	rec, err := t.repo.IssueTool(ctx, toolID, employee)
	if err != nil {
		t.log.Info("issue refused", zap.Uint("tool_id", toolID), zap.Error(err))
		return nil, err
	}
	t.log.Info("tool issued", zap.Uint("issue_id", rec.ID), zap.Uint("tool_id", toolID), zap.String("employee", rec.EmployeeName))

	ev := t.event(events.ToolIssued, toolID, rec.Tool)
	ev.IssueID, ev.Employee = rec.ID, rec.EmployeeName
	t.publish(ctx, ev)
	return rec, nil
}

func (t *Tracker) BeginReturn(ctx context.Context, toolID uint) (*models.IssueRecord, error) {
	return t.repo.BeginReturn(ctx, toolID)
}

func (t *Tracker) CompleteReturn(ctx context.Context, issueID uint) (*models.IssueRecord, error) {
	rec, err := t.repo.CompleteReturn(ctx, issueID)
	if err != nil {
		t.log.Info("return refused", zap.Uint("issue_id", issueID), zap.Error(err))
		return nil, err
	}
	t.log.Info("tool returned", zap.Uint("issue_id", rec.ID), zap.Uint("tool_id", rec.ToolID))

	ev := t.event(events.ToolReturned, rec.ToolID, rec.Tool)
	ev.IssueID, ev.Employee = rec.ID, rec.EmployeeName
	t.publish(ctx, ev)
	return rec, nil
}

func (t *Tracker) RejectReturn(ctx context.Context, issueID uint) (*models.IssueRecord, error) {
	rec, err := t.repo.RejectReturn(ctx, issueID)
	if err != nil {
		return nil, err
	}
	t.log.Info("return rejected", zap.Uint("issue_id", rec.ID), zap.Uint("tool_id", rec.ToolID))

	ev := t.event(events.ReturnRejected, rec.ToolID, rec.Tool)
	ev.IssueID, ev.Employee = rec.ID, rec.EmployeeName
	t.publish(ctx, ev)
	return rec, nil
}

// Views

func (t *Tracker) ListIssued(ctx context.Context) ([]models.IssueRecord, error) {
	return t.repo.ListIssued(ctx)
}

// ListOverdue uses OverdueDays when days is not positive.
func (t *Tracker) ListOverdue(ctx context.Context, days int) ([]models.IssueRecord, error) {
	if days <= 0 {
		days = t.OverdueDays
	}
	return t.repo.ListOverdue(ctx, days)
}

func (t *Tracker) AppendHistory(ctx context.Context, toolID uint, action, employee string) error {
	return t.repo.AppendHistory(ctx, toolID, action, employee)
}

func (t *Tracker) ListHistory(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	return t.repo.ListHistory(ctx, limit)
}

// Report writes the issued, overdue and history sheets to w.
func (t *Tracker) Report(ctx context.Context, w io.Writer) error {
	issued, err := t.ListIssued(ctx)
	if err != nil {
		return err
	}
	overdue, err := t.ListOverdue(ctx, 0)
	if err != nil {
		return err
	}
	history, err := t.ListHistory(ctx, 0)
	if err != nil {
		return err
	}
	return report.WriteWorkbook(w, t.now(), issued, overdue, history)
}

func (t *Tracker) now() time.Time { return t.repo.Now().UTC() }
