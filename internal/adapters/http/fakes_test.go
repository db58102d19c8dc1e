package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/self-healing-rag/internal/config"
	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

type answererFake struct {
	record *domain.AnswerRecord
	err    error
	gotK   int
}

func (f *answererFake) Ask(_ context.Context, question string, topK int) (*domain.AnswerRecord, error) {
	f.gotK = topK
	if f.err != nil {
		return nil, f.err
	}
	if f.record != nil {
		return f.record, nil
	}
	return &domain.AnswerRecord{Question: question, RawAnswer: "ok", FinalAnswer: "ok"}, nil
}

type lifecycleFake struct {
	job        *domain.ReindexJob
	err        error
	versions   []domain.IndexVersion
	rolledBack bool
	gotTag     string
}

func (f *lifecycleFake) SubmitReindex(context.Context) (*domain.ReindexJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *lifecycleFake) Job(_ context.Context, id string) (*domain.ReindexJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil || f.job.ID != id {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get reindex job", errors.New("id="+id))
	}
	return f.job, nil
}

func (f *lifecycleFake) ListVersions(context.Context) ([]domain.IndexVersion, error) {
	return f.versions, f.err
}

func (f *lifecycleFake) Rollback(_ context.Context, tag string) (bool, error) {
	f.gotTag = tag
	return f.rolledBack, f.err
}

type monitorFake struct {
	report    *domain.MonitorReport
	err       error
	adviseArg *domain.MonitorReport
}

func (f *monitorFake) RunSample(context.Context) (*domain.MonitorReport, error) {
	return f.report, f.err
}

func (f *monitorFake) LatestReport(context.Context) (*domain.MonitorReport, error) {
	return f.report, f.err
}

func (f *monitorFake) Advise(_ context.Context, report *domain.MonitorReport) (*domain.Advice, error) {
	f.adviseArg = report
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Advice{Summary: "fine", Fixes: []string{}}, nil
}

type indexFake struct{}

func (indexFake) Stats() domain.IndexStats {
	return domain.IndexStats{Loaded: true, Vectors: 3, Dimension: 8}
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &answererFake{}, &lifecycleFake{}, &monitorFake{}, indexFake{}).Handler()
}
