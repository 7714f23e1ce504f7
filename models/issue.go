// models/issue.go
package models

import "time"

// IssueRecord is one hand-out of a tool. ReturnDate == nil means the tool is
// still out; the database keeps at most one such row per tool.
type IssueRecord struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ToolID             uint       `gorm:"not null;index" json:"toolId"`
	EmployeeName       string     `gorm:"size:255;not null" json:"employeeName"`
	IssueDate          time.Time  `gorm:"not null;index" json:"issueDate"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate,omitempty"`
	ReturnDate         *time.Time `gorm:"index" json:"returnDate,omitempty"`

	Tool *Tool `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
}

func (IssueRecord) TableName() string { return IssueTable }

func (r IssueRecord) Open() bool { return r.ReturnDate == nil }

// Overdue reports whether an open record is past its expected return date.
// Records without an expected date fall back to issueDate + threshold.
func (r IssueRecord) Overdue(now time.Time, threshold time.Duration) bool {
	if !r.Open() {
		return false
	}
	if r.ExpectedReturnDate != nil {
		return r.ExpectedReturnDate.Before(now)
	}
	return r.IssueDate.Before(now.Add(-threshold))
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IssueRequest is an employee's proposal to take a tool, decided once by an admin.
type IssueRequest struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ToolID       uint          `gorm:"not null;index:idx_request_tool_chat" json:"toolId"`
	EmployeeName string        `gorm:"size:255;not null" json:"employeeName"`
	ChatID       int64         `gorm:"not null;index:idx_request_tool_chat" json:"chatId"`
	RequestDate  time.Time     `gorm:"not null" json:"requestDate"`
	Status       RequestStatus `gorm:"size:20;not null;default:'pending'" json:"status"`

	Tool *Tool `gorm:"foreignKey:ToolID" json:"tool,omitempty"`
}

func (IssueRequest) TableName() string { return RequestTable }
