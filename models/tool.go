// models/tool.go
package models

import "time"

const (
	ToolTable    = "tools"
	IssueTable   = "issued_tools"
	RequestTable = "issue_requests"
	HistoryTable = "tool_history"
)

type ToolStatus string

const (
	ToolAvailable ToolStatus = "available"
	ToolIssued    ToolStatus = "issued"
)

// Tool is one physical unit. Units sharing a name form a group in listings;
// Quantity stays 1 for every row created by this service.
type Tool struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"size:200;not null;index" json:"name"` // "Brand - Type"
	Description         *string    `gorm:"type:text" json:"description,omitempty"`
	Status              ToolStatus `gorm:"size:20;not null;default:'available';index" json:"status"`
	Quantity            int        `gorm:"not null;default:1" json:"quantity"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
}

func (Tool) TableName() string { return ToolTable }

func (t Tool) Available() bool { return t.Status == ToolAvailable }

// ToolGroup aggregates units with the same name.
type ToolGroup struct {
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	ToolIDs   []uint `json:"toolIds"`
	// AvailableIDs lists the units that can be requested right now.
	AvailableIDs []uint `json:"availableIds"`
}
