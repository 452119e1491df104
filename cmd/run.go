package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/internal/api"
	"github.com/JakeFAU/disposer/internal/app"
	"github.com/JakeFAU/disposer/internal/metrics"
)

// newRunCmd creates the 'run' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Starts eventtap and blocks until SIGINT/SIGTERM",
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	a, err := app.New(cfg, logger.Named("app"), reg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	httpMetrics, unregisterHTTP, err := metrics.NewHTTP(reg)
	if err != nil {
		a.Close()
		return fmt.Errorf("register http metrics: %w", err)
	}
	a.Root().Push(unregisterHTTP)

	apiServer := api.NewServer(a, api.Config{
		APIKey:   cfg.Server.APIKey,
		Gatherer: reg,
		Metrics:  httpMetrics,
	}, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.Start(ctx)

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()
	logger.Info("shutdown complete")
	return nil
}
