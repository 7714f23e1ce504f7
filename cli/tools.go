package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tool_lending_tracker/app"
	"tool_lending_tracker/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the starter catalog when the store is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Tracker.SeedCatalog(ctx, app.StarterCatalog)
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Println("Catalog already present, nothing to seed.")
					return nil
				}
				fmt.Printf("Seeded %d tool units.\n", n)
				return nil
			})
		},
	}
}

func ToolsCmd() *cobra.Command {
	var (
		query   string
		grouped bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List tools and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if grouped {
					gs, err := a.Tracker.ToolGroups(ctx)
					if err != nil {
						return err
					}
					printGroups(os.Stdout, gs)
					return nil
				}
				ts, err := a.Tracker.SearchTools(ctx, query)
				if err != nil {
					return err
				}
				printTools(os.Stdout, ts)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive name filter")
	cmd.Flags().BoolVarP(&grouped, "grouped", "g", false, "Group units by name")
	return cmd
}

func statusLabel(s models.ToolStatus) string {
	switch s {
	case models.ToolAvailable:
		return color.New(color.FgGreen).Sprint("available")
	case models.ToolIssued:
		return color.New(color.FgYellow).Sprint("issued")
	}
	return string(s)
}

func printTools(w io.Writer, ts []models.Tool) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No tools found.")
		return
	}
	for _, t := range ts {
		fmt.Fprintf(w, "%5d  %-10s  %s\n", t.ID, statusLabel(t.Status), t.Name)
	}
}

func printGroups(w io.Writer, gs []models.ToolGroup) {
	for _, g := range gs {
		avail := fmt.Sprintf("%d/%d", g.Available, g.Total)
		if g.Available == 0 {
			avail = color.New(color.FgRed).Sprint(avail)
		}
		ids := make([]string, 0, len(g.ToolIDs))
		for _, id := range g.ToolIDs {
			ids = append(ids, fmt.Sprint(id))
		}
		fmt.Fprintf(w, "%-45s %s  [%s]\n", g.Name, avail, strings.Join(ids, ","))
	}
}
