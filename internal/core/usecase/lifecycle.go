package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// IndexFiles names the live index and metadata paths the retriever serves.
type IndexFiles struct {
	IndexPath string
	MetaPath  string
}

const stagingDir = ".staging"

// staging returns paths beside the live files that keep their base names, so
// a snapshot taken from the staged pair is named like the live one.
func (f IndexFiles) staging() IndexFiles {
	return IndexFiles{
		IndexPath: filepath.Join(filepath.Dir(f.IndexPath), stagingDir, filepath.Base(f.IndexPath)),
		MetaPath:  filepath.Join(filepath.Dir(f.MetaPath), stagingDir, filepath.Base(f.MetaPath)),
	}
}

// promote moves the pair over live. Both paths must share a filesystem.
func (f IndexFiles) promote(live IndexFiles) error {
	if err := os.Rename(f.IndexPath, live.IndexPath); err != nil {
		return fmt.Errorf("install index: %w", err)
	}
	if err := os.Rename(f.MetaPath, live.MetaPath); err != nil {
		return fmt.Errorf("install metadata: %w", err)
	}
	return nil
}

func (f IndexFiles) discard() {
	for _, path := range []string{f.IndexPath, f.MetaPath} {
		_ = os.Remove(path)
		_ = os.Remove(filepath.Dir(path))
	}
}

// Notifiers fans an index change out to several listeners. Listener errors
// are logged and the remaining listeners still run.
type Notifiers []ports.IndexNotifier

func (n Notifiers) IndexUpdated(ctx context.Context, tag string) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.IndexUpdated(ctx, tag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// localLock is a context aware mutex for a single process.
type localLock chan struct{}

func newLocalLock() localLock { return make(localLock, 1) }

func (l localLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReindexObserver receives reindex job outcomes.
type ReindexObserver interface {
	ObserveReindex(status domain.JobStatus, duration time.Duration)
}

// IndexLifecycleUseCase rebuilds, versions and rolls back the corpus index.
// All writes to the live files go through one writer lock.
type IndexLifecycleUseCase struct {
	docs       ports.DocumentSource
	chunker    ports.Chunker
	embedder   ports.Embedder
	factory    ports.IndexFactory
	metadata   ports.MetadataStore
	versions   ports.VersionStore
	jobs       ports.JobStore
	dispatcher ports.JobDispatcher
	notifier   ports.IndexNotifier
	files      IndexFiles

	lock     ports.WriterLock
	observer ReindexObserver
	now      func() time.Time
}

func NewIndexLifecycleUseCase(
	docs ports.DocumentSource,
	chunker ports.Chunker,
	embedder ports.Embedder,
	factory ports.IndexFactory,
	metadata ports.MetadataStore,
	versions ports.VersionStore,
	jobs ports.JobStore,
	dispatcher ports.JobDispatcher,
	notifier ports.IndexNotifier,
	files IndexFiles,
) *IndexLifecycleUseCase {
	return &IndexLifecycleUseCase{
		docs:       docs,
		chunker:    chunker,
		embedder:   embedder,
		factory:    factory,
		metadata:   metadata,
		versions:   versions,
		jobs:       jobs,
		dispatcher: dispatcher,
		notifier:   notifier,
		files:      files,
		lock:       newLocalLock(),
		now:        time.Now,
	}
}

// WithWriterLock replaces the in-process lock, e.g. with one shared through Postgres.
func (uc *IndexLifecycleUseCase) WithWriterLock(lock ports.WriterLock) *IndexLifecycleUseCase {
	if lock != nil {
		uc.lock = lock
	}
	return uc
}

func (uc *IndexLifecycleUseCase) WithObserver(observer ReindexObserver) *IndexLifecycleUseCase {
	uc.observer = observer
	return uc
}

func (uc *IndexLifecycleUseCase) SetDispatcher(dispatcher ports.JobDispatcher) {
	uc.dispatcher = dispatcher
}

// SubmitReindex records a pending job and hands it to the dispatcher.
func (uc *IndexLifecycleUseCase) SubmitReindex(ctx context.Context) (*domain.ReindexJob, error) {
	job := &domain.ReindexJob{
		ID:        uuid.NewString(),
		Status:    domain.JobPending,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create reindex job: %w", err)
	}
	if err := uc.dispatcher.DispatchReindex(ctx, job.ID); err != nil {
		dispatchErr := fmt.Errorf("dispatch reindex job: %w", err)
		if failErr := uc.finish(ctx, job, domain.JobFailed, dispatchErr); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", dispatchErr, failErr)
		}
		return nil, dispatchErr
	}
	return job, nil
}

func (uc *IndexLifecycleUseCase) Job(ctx context.Context, id string) (*domain.ReindexJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get reindex job", errors.New("job id is required"))
	}
	return uc.jobs.GetJob(ctx, id)
}

// RunJob executes a submitted job. Jobs already finished are skipped so a
// redelivered message does not rebuild twice.
func (uc *IndexLifecycleUseCase) RunJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch reindex job: %w", err)
	}
	if job.Status.Terminal() {
		slog.Info("reindex_job_skipped", "job_id", jobID, "status", job.Status)
		return nil
	}

	started := uc.now().UTC()
	job.Status = domain.JobRunning
	job.StartedAt = &started
	if err := uc.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	version, chunks, runErr := uc.Reindex(ctx)
	if runErr != nil {
		if failErr := uc.finish(ctx, job, domain.JobFailed, runErr); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", runErr, failErr)
		}
		uc.observe(domain.JobFailed, started)
		return runErr
	}

	job.VersionTag = version.Tag
	job.ChunkCount = chunks
	if err := uc.finish(ctx, job, domain.JobSucceeded, nil); err != nil {
		return fmt.Errorf("set status=succeeded: %w", err)
	}
	uc.observe(domain.JobSucceeded, started)
	return nil
}

// Reindex rebuilds the index from the document source, replaces the live
// files, snapshots them as a new version and notifies listeners. A build
// failure leaves the live files untouched.
func (uc *IndexLifecycleUseCase) Reindex(ctx context.Context) (domain.IndexVersion, int, error) {
	release, err := uc.lock.Acquire(ctx)
	if err != nil {
		return domain.IndexVersion{}, 0, fmt.Errorf("acquire writer lock: %w", err)
	}
	defer release()

	docs, err := uc.docs.LoadDocuments(ctx)
	if err != nil {
		return domain.IndexVersion{}, 0, fmt.Errorf("load documents: %w", err)
	}
	index, metadata, err := BuildIndex(ctx, uc.chunker, uc.embedder, uc.factory, docs)
	if err != nil {
		return domain.IndexVersion{}, 0, err
	}

	// The live pair is replaced only after the snapshot exists.
	staged := uc.files.staging()
	defer staged.discard()
	for _, path := range []string{staged.IndexPath, staged.MetaPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return domain.IndexVersion{}, 0, fmt.Errorf("create staging dir: %w", err)
		}
	}
	if err := index.Persist(staged.IndexPath); err != nil {
		return domain.IndexVersion{}, 0, fmt.Errorf("persist index: %w", err)
	}
	if err := uc.metadata.SaveMetadata(ctx, staged.MetaPath, metadata); err != nil {
		return domain.IndexVersion{}, 0, fmt.Errorf("persist metadata: %w", err)
	}
	version, err := uc.versions.SaveVersion(ctx, staged.IndexPath, staged.MetaPath)
	if err != nil {
		return domain.IndexVersion{}, 0, fmt.Errorf("save version: %w", err)
	}
	if err := staged.promote(uc.files); err != nil {
		return domain.IndexVersion{}, 0, err
	}
	slog.Info("index_rebuilt", "tag", version.Tag, "documents", len(docs), "chunks", len(metadata))
	uc.notify(ctx, version.Tag)
	return version, len(metadata), nil
}

func (uc *IndexLifecycleUseCase) ListVersions(ctx context.Context) ([]domain.IndexVersion, error) {
	versions, err := uc.versions.ListVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// Rollback restores the version tagged tag over the live files. It reports
// false without touching anything when no version has that tag.
func (uc *IndexLifecycleUseCase) Rollback(ctx context.Context, tag string) (bool, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false, domain.WrapError(domain.ErrInvalidInput, "rollback", errors.New("tag is required"))
	}
	release, err := uc.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire writer lock: %w", err)
	}
	defer release()

	ok, err := uc.versions.RollbackTo(ctx, tag, uc.files.IndexPath, uc.files.MetaPath)
	if err != nil {
		return false, fmt.Errorf("rollback to %s: %w", tag, err)
	}
	if !ok {
		return false, nil
	}
	slog.Info("index_rolled_back", "tag", tag)
	uc.notify(ctx, tag)
	return true, nil
}

func (uc *IndexLifecycleUseCase) notify(ctx context.Context, tag string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.IndexUpdated(ctx, tag); err != nil {
		slog.Warn("index_notify_failed", "tag", tag, "error", err)
	}
}

func (uc *IndexLifecycleUseCase) finish(ctx context.Context, job *domain.ReindexJob, status domain.JobStatus, cause error) error {
	finished := uc.now().UTC()
	job.Status = status
	job.FinishedAt = &finished
	if cause != nil {
		job.Error = cause.Error()
		slog.Error("reindex_job_failed", "job_id", job.ID, "error", cause)
	}
	return uc.jobs.UpdateJob(ctx, job)
}

func (uc *IndexLifecycleUseCase) observe(status domain.JobStatus, started time.Time) {
	if uc.observer != nil {
		uc.observer.ObserveReindex(status, uc.now().Sub(started))
	}
}
