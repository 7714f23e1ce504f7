package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"tool_lending_tracker/app"
	"tool_lending_tracker/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const dateFmt = "2006-01-02"

func IssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <tool-id> <employee name>",
		Short: "Issue an available tool to an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				rec, err := a.Tracker.IssueTool(ctx, id, args[1])
				if err != nil {
					return err
				}
				fmt.Printf("%s issue #%d: tool %d to %s, due %s\n",
					color.New(color.FgGreen).Sprint("✓"), rec.ID, rec.ToolID, rec.EmployeeName, rec.ExpectedReturnDate.Format(dateFmt))
				return nil
			})
		},
	}
}

func ReturnCmd() *cobra.Command {
	var byTool bool

	cmd := &cobra.Command{
		Use:   "return <issue-id>",
		Short: "Complete the return of an open issue record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if byTool {
					rec, err := a.Tracker.BeginReturn(ctx, id)
					if err != nil {
						return err
					}
					id = rec.ID
				}
				rec, err := a.Tracker.CompleteReturn(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("%s tool %d returned by %s\n", color.New(color.FgGreen).Sprint("✓"), rec.ToolID, rec.EmployeeName)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&byTool, "tool", "t", false, "Treat the argument as a tool id")
	return cmd
}

func OverdueCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List open issue records past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				rs, err := a.Tracker.ListOverdue(ctx, days)
				if err != nil {
					return err
				}
				printIssues(os.Stdout, rs, a.Tracker.Repo().Now())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "Threshold for records without a due date (default from OVERDUE_DAYS)")
	return cmd
}

func HistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the tool history ledger, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				hs, err := a.Tracker.ListHistory(ctx, limit)
				if err != nil {
					return err
				}
				printHistory(os.Stdout, hs)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries (0 for all)")
	return cmd
}

func ReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the issued/overdue/history workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if out == "" {
					out = fmt.Sprintf("tools_%s.xlsx", a.Tracker.Repo().Now().Format(dateFmt))
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := a.Tracker.Report(ctx, f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	return cmd
}

func printIssues(w io.Writer, rs []models.IssueRecord, now time.Time) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "Nothing overdue.")
		return
	}
	for _, r := range rs {
		name := ""
		if r.Tool != nil {
			name = r.Tool.Name
		}
		due := "-"
		if r.ExpectedReturnDate != nil {
			due = r.ExpectedReturnDate.Format(dateFmt)
		}
		late := int(now.Sub(r.IssueDate).Hours() / 24)
		fmt.Fprintf(w, "#%-4d %-40s %-25s issued %s due %s %s\n",
			r.ID, name, r.EmployeeName, r.IssueDate.Format(dateFmt), due,
			color.New(color.FgRed).Sprintf("(%dd out)", late))
	}
}

func printHistory(w io.Writer, hs []models.HistoryEntry) {
	for _, h := range hs {
		name := ""
		if h.Tool != nil {
			name = h.Tool.Name
		}
		action := h.Action
		switch action {
		case models.ActionIssue:
			action = color.New(color.FgYellow).Sprint(action)
		case models.ActionReturned:
			action = color.New(color.FgGreen).Sprint(action)
		case models.ActionRejected:
			action = color.New(color.FgRed).Sprint(action)
		}
		fmt.Fprintf(w, "%s  %-8s  %-40s %s\n", h.Timestamp.Format("2006-01-02 15:04"), action, name, h.EmployeeName)
	}
}
