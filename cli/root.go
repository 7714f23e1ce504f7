// Package cli holds the command line front end.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"tool_lending_tracker/app"

	"github.com/spf13/cobra"
)

func Execute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tools",
		Short: "Workshop tool lending tracker",
		Long: `Tracks which workshop tools are available or issued, runs the
request and return workflow, and serves the REST API and Telegram webhook.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(SeedCmd())
	rootCmd.AddCommand(ToolsCmd())
	rootCmd.AddCommand(IssueCmd())
	rootCmd.AddCommand(ReturnCmd())
	rootCmd.AddCommand(OverdueCmd())
	rootCmd.AddCommand(HistoryCmd())
	rootCmd.AddCommand(ReportCmd())
	return rootCmd
}

// withApp opens the configured stores for one command and closes them after.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg := app.LoadConfig()
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
