// Command api serves the smart-budget HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FACorreiaa/smart-budget/pkg/config"
	"github.com/FACorreiaa/smart-budget/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	if mode, ok := os.LookupEnv("GIN_MODE"); ok {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	if cfg.Server.MetricsEnabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return err
		}
	}

	if err := deps.Scheduler.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: NewRouter(RouterConfig{
			Routes:         deps.Routes(),
			Health:         deps.DB.Pool.Ping,
			CORSOrigins:    cfg.Server.CORSOrigins,
			RatePerSecond:  cfg.Server.RateLimitPerSecond,
			RateBurst:      cfg.Server.RateLimitBurst,
			MetricsEnabled: cfg.Server.MetricsEnabled,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			<-deps.Scheduler.Stop().Done()
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", slog.Any("error", err))
	}

	select {
	case <-deps.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled jobs still running at shutdown")
	}

	logger.Info("server stopped")
	return nil
}
