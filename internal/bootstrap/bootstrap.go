package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
	"github.com/kirillkom/self-healing-rag/internal/core/usecase"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/cache"
	rediscache "github.com/kirillkom/self-healing-rag/internal/infrastructure/cache/redis"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/extractor"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/queue/local"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/repository/memory"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/self-healing-rag/internal/infrastructure/vectorindex/flat"
)

// Observers lets each binary hook its own metrics into the use cases.
type Observers struct {
	Reindex usecase.ReindexObserver
	Monitor ports.MonitorObserver
	Retry   resilience.RetryObserver
}

type App struct {
	Config config.Config

	Retriever *usecase.Retriever
	QueryUC   *usecase.QueryUseCase
	IndexUC   *usecase.IndexLifecycleUseCase
	MonitorUC *usecase.CorpusMonitorUseCase
	CorpusUC  *usecase.CorpusUseCase

	// Bus is nil unless REINDEX_DISPATCH=nats.
	Bus *nats.Bus

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, obs Observers) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilienceConfig(cfg.Resilience))
	if obs.Retry != nil {
		executor.OnRetry(obs.Retry)
	}

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		time.Duration(cfg.OllamaTimeoutSeconds)*time.Second,
		executor,
	)
	generator := ollama.NewGenerator(ollamaClient)
	embedder := app.newEmbedder(ctx, cfg, ollamaClient)

	jobs, lock, err := app.newJobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files := usecase.IndexFiles{IndexPath: cfg.IndexPath, MetaPath: cfg.MetadataPath}
	documents := localfs.NewDocumentFile(cfg.DocumentsPath)
	metadata := localfs.MetadataFiles{}
	factory := flat.Factory{}

	retriever := usecase.NewRetriever(embedder, factory, metadata, cfg.IndexPath, cfg.MetadataPath)
	if err := retriever.Load(ctx); err != nil {
		slog.Warn("index_not_loaded", "index_path", cfg.IndexPath, "error", err)
	}

	notifiers := usecase.Notifiers{retriever}
	if cfg.ReindexDispatch == config.DispatchNATS {
		bus, err := nats.New(cfg.NATSURL, nats.Subjects{
			Reindex:      cfg.NATSReindexSubject,
			IndexUpdated: cfg.NATSIndexSubject,
		}, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message bus: %w", err)
		}
		app.Bus = bus
		app.onClose(bus.Close)
		notifiers = append(notifiers, bus)
	}

	indexUC := usecase.NewIndexLifecycleUseCase(
		documents,
		chunking.NewWordSplitter(cfg.ChunkSize),
		embedder,
		factory,
		metadata,
		localfs.NewVersionManager(cfg.VersionsDir),
		jobs,
		nil,
		notifiers,
		files,
	).WithWriterLock(lock)
	if obs.Reindex != nil {
		indexUC.WithObserver(obs.Reindex)
	}
	if app.Bus != nil {
		indexUC.SetDispatcher(app.Bus)
	} else {
		dispatcher := local.NewDispatcher(ctx, indexUC)
		indexUC.SetDispatcher(dispatcher)
		app.onClose(dispatcher.Wait)
	}

	monitorUC := usecase.NewCorpusMonitorUseCase(
		embedder,
		factory,
		metadata,
		localfs.NewReportFile(cfg.ReportPath),
		generator,
		files,
		usecase.MonitorSettings{
			SchemaKeys:   cfg.MonitorSchemaKeys,
			SampleN:      cfg.MonitorSampleN,
			SimThreshold: cfg.MonitorSimThreshold,
			ProbeQueries: cfg.MonitorProbeQueries,
			TopK:         cfg.MonitorTopK,
		},
	)
	if obs.Monitor != nil {
		monitorUC.WithObserver(obs.Monitor)
	}

	app.Retriever = retriever
	app.QueryUC = usecase.NewQueryUseCase(retriever, generator, usecase.NewAnswerPipeline(generator), cfg.RAGTopK)
	app.IndexUC = indexUC
	app.MonitorUC = monitorUC
	app.CorpusUC = usecase.NewCorpusUseCase(documents, extractor.Registry())

	ok = true
	return app, nil
}

// newEmbedder picks the provider and, when REDIS_ADDR is set, puts the
// vector cache in front of it. An unreachable Redis only disables caching.
func (a *App) newEmbedder(ctx context.Context, cfg config.Config, client *ollama.Client) ports.Embedder {
	var (
		embedder ports.Embedder
		model    string
	)
	switch cfg.EmbeddingProvider {
	case config.EmbeddingHashing:
		h := hashing.New(cfg.HashingDimension)
		embedder = h
		model = fmt.Sprintf("hashing-%d", h.Dimension())
	default:
		embedder = ollama.NewEmbedder(client)
		model = client.EmbedModel()
	}

	if cfg.RedisAddr == "" {
		return embedder
	}
	redisClient, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("embedding_cache_disabled", "addr", cfg.RedisAddr, "error", err)
		return embedder
	}
	a.onClose(func() { _ = redisClient.Close() })

	ttl := time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second
	return cache.NewCachedEmbedder(embedder, rediscache.NewVectorCache(redisClient, ttl), model)
}

func (a *App) newJobStore(ctx context.Context, cfg config.Config) (ports.JobStore, ports.WriterLock, error) {
	if cfg.JobStore != config.JobStorePostgres {
		return memory.NewJobStore(), nil, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { closeDB(db) })

	repo := postgres.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, postgres.NewWriterLock(db), nil
}

func resilienceConfig(c config.ResilienceConfig) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        c.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(c.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(c.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         c.RetryMultiplier,
		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      uint32(max(c.BreakerMinRequests, 0)),
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(c.BreakerOpenTimeoutMS) * time.Millisecond,
		BreakerHalfOpenMaxCalls: uint32(max(c.BreakerHalfOpenMaxCalls, 0)),
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("postgres_close_failed", "error", err)
	}
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
