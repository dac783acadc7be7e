package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"weather-qc/internal/handlers"
	"weather-qc/internal/services"
	"weather-qc/pkg/logging"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the QC HTTP API",
		Long: `Serve the QC HTTP API with graceful shutdown on SIGINT/SIGTERM.

  POST /api/qc/runs?source=name     run the checks over the request body
  GET  /api/qc/runs                 list stored runs
  GET  /api/qc/runs/{id}            run and defect ledger
  GET  /api/qc/runs/{id}/records    records after all checks
  GET  /health, /metrics, /api/docs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			a.logger.Info(ctx, "[STARTUP] Starting weather QC API server", logging.Fields{
				"version":     opts.version,
				"server_host": a.cfg.Server.Host,
				"server_port": a.cfg.Server.Port,
				"persistence": a.repo != nil,
			})

			// Uploads are not written to the local output directory
			quality, err := a.qualityService(ctx, exporterSet{})
			if err != nil {
				return err
			}

			var runs *services.RunService
			if a.repo != nil {
				runs = services.NewRunService(a.repo, a.logger, a.metrics)
			}

			handler := handlers.NewQCHandler(quality, runs, a.cfg.Server.MaxUploadBytes, a.logger, a.metrics)

			router := mux.NewRouter()
			handler.RegisterRoutes(router)
			router.Handle("/metrics", a.metrics.Handler())

			server := &http.Server{
				Addr:         fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}

			serveErr := make(chan error, 1)
			go func() {
				a.logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
					"address": server.Addr,
				})
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
			}

			a.logger.Info(context.Background(), "[SHUTDOWN] Shutting down server...", logging.Fields{})

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(shutdownCtx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
				return err
			}

			a.logger.Info(shutdownCtx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store uploaded runs in the database")

	return cmd
}
