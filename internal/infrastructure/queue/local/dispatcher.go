// Package local runs reindex jobs inside the API process when no message
// broker is configured.
package local

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

type Dispatcher struct {
	base   context.Context
	runner ports.ReindexRunner
	wg     sync.WaitGroup
}

// NewDispatcher runs jobs under base so they outlive the request that
// submitted them; cancelling base aborts running jobs.
func NewDispatcher(base context.Context, runner ports.ReindexRunner) *Dispatcher {
	return &Dispatcher{base: base, runner: runner}
}

func (d *Dispatcher) DispatchReindex(_ context.Context, jobID string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.RunJob(d.base, jobID); err != nil {
			slog.Error("local_reindex_failed", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
