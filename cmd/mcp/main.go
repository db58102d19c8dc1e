package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/self-healing-rag/internal/adapters/mcp"
	"github.com/kirillkom/self-healing-rag/internal/bootstrap"
	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	// stdout carries JSON-RPC.
	slog.SetDefault(logging.NewWithWriter(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Observers{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcp.NewServer(&mcp.Ports{
		Answerer:  app.QueryUC,
		Lifecycle: app.IndexUC,
		Monitor:   app.MonitorUC,
	})
	if err != nil {
		slog.Error("mcp_init_failed", "error", err)
		os.Exit(1)
	}
	if err := server.Run(ctx); err != nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
