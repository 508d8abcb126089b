// Package jobs persists job records and progress. The store is the only
// resource a running job shares with the outside world: status pollers
// read it concurrently while the owning worker is the single writer.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// Store is the job record store shared between the API and workers.
type Store interface {
	// Create persists a new PENDING job record.
	Create(ctx context.Context, job *types.Job) error
	// Get returns the job or a NotFoundError.
	Get(ctx context.Context, id string) (*types.Job, error)
	// Save overwrites an existing job record; only the owning worker
	// calls it. Saving a deleted record is a NotFoundError, never a
	// re-create: a concurrent delete must stay deleted.
	Save(ctx context.Context, job *types.Job) error
	// Delete removes the record. The cancel flag is left in place so an
	// in-flight worker can still observe it after the record is gone.
	Delete(ctx context.Context, id string) error
	// RequestCancel flags a running job for best-effort termination.
	RequestCancel(ctx context.Context, id string) error
	// CancelRequested reports whether the flag is set.
	CancelRequested(ctx context.Context, id string) (bool, error)
	// ClearCancel drops the flag once the worker has acted on it.
	ClearCancel(ctx context.Context, id string) error
	// ExpiredIDs lists terminal jobs whose expiry passed before now.
	ExpiredIDs(ctx context.Context, now time.Time) ([]string, error)
}

// NewJob builds a PENDING job record for the given input.
func NewJob(cfg types.VideoConfig, wordCount int) *types.Job {
	return &types.Job{
		ID:        uuid.NewString(),
		Config:    cfg,
		State:     types.StatePending,
		WordCount: wordCount,
		Progress:  types.Progress{Message: "Job is queued..."},
		CreatedAt: time.Now().UTC(),
	}
}

// MemoryStore is the in-process Store used in tests and in single-process
// mode (no Redis configured). A RWMutex gives pollers concurrent reads
// against the worker's writes.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]types.Job
	canceled map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]types.Job),
		canceled: make(map[string]bool),
	}
}

func (s *MemoryStore) Create(ctx context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, &types.NotFoundError{JobID: id}
	}
	return &job, nil
}

func (s *MemoryStore) Save(ctx context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return &types.NotFoundError{JobID: job.ID}
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) RequestCancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled[id] = true
	return nil
}

func (s *MemoryStore) CancelRequested(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canceled[id], nil
}

func (s *MemoryStore) ClearCancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.canceled, id)
	return nil
}

func (s *MemoryStore) ExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, job := range s.jobs {
		if !job.ExpiresAt.IsZero() && job.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
