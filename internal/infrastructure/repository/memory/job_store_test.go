package memory

import (
	"context"
	"testing"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func TestJobStoreLifecycle(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.ReindexJob{ID: "job-1", Status: domain.JobPending}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.CreateJob(ctx, job); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	job.Status = domain.JobSucceeded
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}
	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != domain.JobSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}

	got.Status = domain.JobFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != domain.JobSucceeded {
		t.Fatalf("GetJob must return a copy")
	}
}

func TestJobStoreUnknownID(t *testing.T) {
	store := NewJobStore()
	if _, err := store.GetJob(context.Background(), "nope"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := store.UpdateJob(context.Background(), &domain.ReindexJob{ID: "nope"}); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
