package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const indexWriterLockID int64 = 2026101602

// WriterLock is a session advisory lock that serialises index writes across
// every process sharing the database.
type WriterLock struct {
	db *sql.DB
}

func NewWriterLock(db *sql.DB) *WriterLock {
	return &WriterLock{db: db}
}

// Acquire blocks until the lock is held. The returned func releases it.
func (l *WriterLock) Acquire(ctx context.Context) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, indexWriterLockID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire index writer lock: %w", err)
	}
	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, indexWriterLockID); err != nil {
			slog.Warn("index_writer_unlock_failed", "error", err)
		}
		_ = conn.Close()
	}, nil
}
