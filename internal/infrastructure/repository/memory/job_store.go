package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// JobStore keeps reindex jobs for a single process.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.ReindexJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.ReindexJob)}
}

func (s *JobStore) CreateJob(_ context.Context, job *domain.ReindexJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create reindex job", fmt.Errorf("duplicate id %s", job.ID))
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *JobStore) GetJob(_ context.Context, id string) (*domain.ReindexJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get reindex job", fmt.Errorf("id %s", id))
	}
	return &job, nil
}

func (s *JobStore) UpdateJob(_ context.Context, job *domain.ReindexJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return domain.WrapError(domain.ErrJobNotFound, "update reindex job", fmt.Errorf("id %s", job.ID))
	}
	s.jobs[job.ID] = *job
	return nil
}
