package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TWRT/task-manager/internal/api"
	"github.com/TWRT/task-manager/internal/api/auth"
	"github.com/TWRT/task-manager/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, cfg, logger, err := opts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}

			shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
				Enabled:     cfg.OtelEnabled,
				Stdout:      cfg.OtelStdout,
				ServiceName: "task-manager",
				Version:     Version,
			})
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTelemetry(flushCtx); err != nil {
					logger.Warn("telemetry shutdown failed", "err", err)
				}
			}()

			router := api.SetupRouter(db, auth.NewVerifier(cfg.JWTSecret), cfg.RequestTimeout, logger)
			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", srv.Addr, "db", cfg.DBPath, "version", Version)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
