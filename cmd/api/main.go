package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/self-healing-rag/internal/adapters/http"
	"github.com/kirillkom/self-healing-rag/internal/bootstrap"
	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/core/usecase"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/watch"
	"github.com/kirillkom/self-healing-rag/internal/observability/logging"
	"github.com/kirillkom/self-healing-rag/internal/observability/metrics"
)

const serviceName = "api"

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

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Observers{
		Reindex: httpMetrics,
		Monitor: httpMetrics,
		Retry:   httpMetrics.RecordRetry,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Bus != nil {
		go func() {
			err := app.Bus.SubscribeIndexUpdated(ctx, app.Retriever.IndexUpdated)
			if err != nil && ctx.Err() == nil {
				slog.Error("index_subscription_failed", "error", err)
			}
		}()
	}
	if cfg.IndexWatchEnabled {
		watcher := watch.NewIndexWatcher(cfg.IndexPath, cfg.MetadataPath, watch.DefaultDebounce, func(ctx context.Context) error {
			return app.Retriever.IndexUpdated(ctx, usecase.FileChangeTag)
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("index_watch_failed", "error", err)
			}
		}()
	}

	router := httpadapter.NewRouter(cfg, app.QueryUC, app.IndexUC, app.MonitorUC, app.Retriever).
		WithMetrics(httpMetrics).
		Handler()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		slog.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConns)
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "dispatch", cfg.ReindexDispatch, "index_loaded", app.Retriever.Stats().Loaded)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}
}
