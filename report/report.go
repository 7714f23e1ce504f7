// Package report renders the lending state as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"tool_lending_tracker/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetIssued  = "Issued"
	SheetOverdue = "Overdue"
	SheetHistory = "History"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	dateFmt = "2006-01-02 15:04"
)

var (
	issueHeaders   = []interface{}{"Issue ID", "Tool ID", "Tool", "Employee", "Issued", "Due", "Days out"}
	historyHeaders = []interface{}{"ID", "Tool ID", "Tool", "Action", "Employee", "Time"}
)

// WriteWorkbook writes three sheets: open records, overdue records and the
// history ledger. now is used for the "Days out" column.
func WriteWorkbook(w io.Writer, now time.Time, issued, overdue []models.IssueRecord, history []models.HistoryEntry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetIssued); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetOverdue); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetHistory); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for _, s := range []struct {
		name string
		rs   []models.IssueRecord
	}{{SheetIssued, issued}, {SheetOverdue, overdue}} {
		if err := writeRows(f, s.name, bold, issueHeaders, len(s.rs), func(i int) []interface{} {
			return issueRow(s.rs[i], now)
		}); err != nil {
			return err
		}
		_ = f.SetColWidth(s.name, "C", "D", 30)
		_ = f.SetColWidth(s.name, "E", "F", 18)
	}

	if err := writeRows(f, SheetHistory, bold, historyHeaders, len(history), func(i int) []interface{} {
		return historyRow(history[i])
	}); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetHistory, "C", "C", 30)
	_ = f.SetColWidth(SheetHistory, "E", "F", 20)

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, style int, headers []interface{}, n int, row func(int) []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row(i)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func toolName(t *models.Tool) string {
	if t == nil {
		return ""
	}
	return t.Name
}

func issueRow(r models.IssueRecord, now time.Time) []interface{} {
	due := "-"
	if r.ExpectedReturnDate != nil {
		due = r.ExpectedReturnDate.Format(dateFmt)
	}
	days := int(now.Sub(r.IssueDate).Hours() / 24)
	return []interface{}{
		r.ID, r.ToolID, toolName(r.Tool), r.EmployeeName,
		r.IssueDate.Format(dateFmt), due, days,
	}
}

func historyRow(h models.HistoryEntry) []interface{} {
	return []interface{}{
		h.ID, h.ToolID, toolName(h.Tool), h.Action, h.EmployeeName, h.Timestamp.Format(dateFmt),
	}
}
