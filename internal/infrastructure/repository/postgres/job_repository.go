package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

const schemaLockID int64 = 2026101601

// JobRepository stores reindex jobs so api and worker processes share state.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS reindex_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	version_tag TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_reindex_jobs_created_at ON reindex_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) CreateJob(ctx context.Context, job *domain.ReindexJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO reindex_jobs (id, status, version_tag, chunk_count, error_message, created_at, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		job.ID, string(job.Status), job.VersionTag, job.ChunkCount, job.Error,
		job.CreatedAt, nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reindex job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetJob(ctx context.Context, id string) (*domain.ReindexJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, version_tag, chunk_count, error_message, created_at, started_at, finished_at
FROM reindex_jobs
WHERE id = $1
`, id)

	var job domain.ReindexJob
	var status string
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(&job.ID, &status, &job.VersionTag, &job.ChunkCount, &job.Error, &job.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get reindex job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan reindex job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.StartedAt = timePtr(startedAt)
	job.FinishedAt = timePtr(finishedAt)
	return &job, nil
}

func (r *JobRepository) UpdateJob(ctx context.Context, job *domain.ReindexJob) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE reindex_jobs
SET status = $2, version_tag = $3, chunk_count = $4, error_message = $5, started_at = $6, finished_at = $7
WHERE id = $1
`,
		job.ID, string(job.Status), job.VersionTag, job.ChunkCount, job.Error,
		nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("update reindex job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reindex job rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update reindex job", fmt.Errorf("id %s", job.ID))
	}
	return nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}
