// models/history.go
package models

import "time"

// Actions written to the history ledger.
const (
	ActionIssue    = "issue"
	ActionReturned = "returned"
	ActionRejected = "rejected"
)

// HistoryEntry is append-only.
type HistoryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ToolID       uint      `gorm:"not null;index" json:"toolId"`
	Action       string    `gorm:"size:40;not null" json:"action"`
	EmployeeName string    `gorm:"size:255" json:"employeeName"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`

	Tool *Tool `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
}

func (HistoryEntry) TableName() string { return HistoryTable }
