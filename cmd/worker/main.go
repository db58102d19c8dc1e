package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/self-healing-rag/internal/bootstrap"
	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/observability/logging"
	"github.com/kirillkom/self-healing-rag/internal/observability/metrics"
)

const (
	serviceName   = "worker"
	reindexBudget = 30 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Observers{
		Reindex: workerMetrics,
		Monitor: workerMetrics,
		Retry:   workerMetrics.RecordRetry,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	if app.Bus != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("worker_subscribed", "subject", cfg.NATSReindexSubject)
			err := app.Bus.SubscribeReindexRequested(ctx, func(handlerCtx context.Context, jobID string) error {
				jobCtx, cancel := context.WithTimeout(handlerCtx, reindexBudget)
				defer cancel()
				workerMetrics.StartJob()
				err := app.IndexUC.RunJob(jobCtx, jobID)
				workerMetrics.FinishJob(err)
				return err
			})
			if err != nil {
				slog.Error("worker_subscribe_failed", "error", err)
				stop()
			}
		}()
	}
	if cfg.MonitorIntervalSeconds > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			interval := time.Duration(cfg.MonitorIntervalSeconds) * time.Second
			slog.Info("monitor_loop_started", "interval", interval.String())
			if err := app.MonitorUC.RunPeriodic(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("monitor_loop_failed", "error", err)
			}
		}()
	}
	if app.Bus == nil && cfg.MonitorIntervalSeconds <= 0 {
		slog.Warn("worker_idle", "reason", "REINDEX_DISPATCH is local and MONITOR_INTERVAL_SECONDS is 0")
	}

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker_metrics_shutdown_failed", "error", err)
	}
}
