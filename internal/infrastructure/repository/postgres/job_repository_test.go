package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func TestJobRepositoryEnsureSchemaUsesAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reindex_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryCreateJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO reindex_jobs").
		WithArgs("job-1", "pending", "", 0, "", createdAt, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.CreateJob(context.Background(), &domain.ReindexJob{
		ID:        "job-1",
		Status:    domain.JobPending,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetJobScansNullableTimes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	startedAt := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "status", "version_tag", "chunk_count", "error_message", "created_at", "started_at", "finished_at"}).
		AddRow("job-1", "running", "", 0, "", startedAt, startedAt, nil)
	mock.ExpectQuery("FROM reindex_jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != domain.JobRunning {
		t.Fatalf("expected running status, got %s", job.Status)
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(startedAt) {
		t.Fatalf("unexpected started_at: %v", job.StartedAt)
	}
	if job.FinishedAt != nil {
		t.Fatalf("expected nil finished_at, got %v", job.FinishedAt)
	}
}

func TestJobRepositoryGetJobNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectQuery("FROM reindex_jobs").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetJob(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepositoryUpdateJobReturnsNotFoundWhenNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE reindex_jobs").
		WithArgs("missing", "failed", "", 0, "boom", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateJob(context.Background(), &domain.ReindexJob{ID: "missing", Status: domain.JobFailed, Error: "boom"})
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriterLockAcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(indexWriterLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(indexWriterLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	release, err := NewWriterLock(db).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
