package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/self-healing-rag/internal/adapters/cli"
	"github.com/kirillkom/self-healing-rag/internal/bootstrap"
	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/observability/logging"
)

const serviceName = "ragctl"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app *bootstrap.App
	provide := func(ctx context.Context) (*cli.Services, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		slog.SetDefault(logging.NewWithWriter(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))

		app, err = bootstrap.New(ctx, cfg, bootstrap.Observers{})
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Indexer:  app.IndexUC,
			Monitor:  app.MonitorUC,
			Corpus:   app.CorpusUC,
			Answerer: app.QueryUC,
		}, nil
	}

	root := cli.NewRootCommand(provide)
	root.SetOut(os.Stdout)
	err := root.ExecuteContext(ctx)
	if app != nil {
		app.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
