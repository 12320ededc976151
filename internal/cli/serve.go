package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/config"
	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard view model over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer syncLogger(logger)

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ingestion_url", cfg.IngestionURL),
		zap.String("query_url", cfg.QueryURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("upload_timeout", cfg.UploadTimeout),
		zap.Duration("sync_reload_delay", cfg.SyncReloadDelay),
		zap.Duration("sync_min_interval", cfg.SyncMinInterval),
		zap.Bool("session_persisted", cfg.SessionFile != ""),
		zap.Bool("session_sealed", cfg.SessionKey != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdown(context.Background())

	// --- Core ---
	d := build(ctx, cfg, logger, sessionStore(cfg.SessionFile, cfg.SessionKey))
	defer d.close()

	// Initial load, as when the dashboard first mounts.
	go d.dash.Load(ctx, domain.FilterSet{})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      d.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.UploadTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
