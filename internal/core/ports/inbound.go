package ports

import (
	"context"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the self-healing answer flow.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, topK int) (*domain.AnswerRecord, error)
}

// IndexLifecycle is the inbound contract for reindex jobs and version history.
type IndexLifecycle interface {
	SubmitReindex(ctx context.Context) (*domain.ReindexJob, error)
	Job(ctx context.Context, id string) (*domain.ReindexJob, error)
	ListVersions(ctx context.Context) ([]domain.IndexVersion, error)
	Rollback(ctx context.Context, tag string) (bool, error)
}

// ReindexRunner executes a previously submitted job.
type ReindexRunner interface {
	RunJob(ctx context.Context, jobID string) error
}

type CorpusMonitor interface {
	RunSample(ctx context.Context) (*domain.MonitorReport, error)
	LatestReport(ctx context.Context) (*domain.MonitorReport, error)
	Advise(ctx context.Context, report *domain.MonitorReport) (*domain.Advice, error)
}

// IndexReader exposes the state of the loaded index snapshot.
type IndexReader interface {
	Stats() domain.IndexStats
}
