package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tool_lending_tracker/app"
	"tool_lending_tracker/routes"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func ServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and Telegram webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.MustNew()
			defer application.Close()
			if seed && !application.Config.SeedCatalog {
				app.BootstrapCatalog(cmd.Context(), application.Tracker, application.Log)
			}

			routes.RegisterRoutes(application.Router, application)

			srv := &http.Server{
				Addr:              ":" + application.Config.Port,
				Handler:           application.Router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				application.Log.Info("listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			application.Log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Seed the starter catalog into an empty store")
	return cmd
}
