package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/partident/internal/config"
	"github.com/lehigh-university-libraries/partident/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the identification API",
		Long: `Starts the HTTP API for capturing photos, running identifications,
importing the parts catalog and browsing history.

Stored capture images are served under /static/uploads/.`,
		Example: `  # Start server on default port 8888
  partident serve

  # Start server on custom port
  partident serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, func(cfg *config.Config) {
				if port != "" {
					cfg.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			handler := handlers.New(a.orchestrator, a.catalog, a.importer, a.objects, a.cfg.MaxImageSize)

			// Set up routes
			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + a.cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Partident API available", "addr", addr, "url", "http://localhost"+addr, "provider", a.cfg.Provider, "model", a.cfg.Model)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default 8888)")

	return cmd
}
