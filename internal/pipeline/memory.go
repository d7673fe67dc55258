package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

// MemoryQueue is an in-process bounded job queue.
type MemoryQueue struct {
	jobs chan domain.RenderJob
}

// NewMemoryQueue creates a queue holding at most size pending jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan domain.RenderJob, size)}
}

// Enqueue adds job without blocking. A full queue returns ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, job domain.RenderJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.RenderJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return domain.RenderJob{}, ctx.Err()
	}
}

// Len reports the number of pending jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// MemoryStatusStore keeps job status records in process memory. Records older
// than the TTL are dropped.
type MemoryStatusStore struct {
	mu      sync.Mutex
	records map[string]domain.JobStatus
	ttl     time.Duration
	clock   clockwork.Clock
}

// NewMemoryStatusStore creates a store expiring records after ttl. A nil clock
// selects the real clock.
func NewMemoryStatusStore(ttl time.Duration, clock clockwork.Clock) *MemoryStatusStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStatusStore{
		records: make(map[string]domain.JobStatus),
		ttl:     ttl,
		clock:   clock,
	}
}

// Upsert replaces the record for status.JobID.
func (s *MemoryStatusStore) Upsert(_ context.Context, status domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	s.records[status.JobID] = status
	return nil
}

// Get returns the latest record for id, or ErrJobNotFound.
func (s *MemoryStatusStore) Get(_ context.Context, id string) (domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.records[id]
	if !ok || s.expired(st) {
		return domain.JobStatus{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return st, nil
}

func (s *MemoryStatusStore) expired(st domain.JobStatus) bool {
	return s.ttl > 0 && s.clock.Since(st.UpdatedAt) > s.ttl
}

func (s *MemoryStatusStore) prune() {
	for id, st := range s.records {
		if s.expired(st) {
			delete(s.records, id)
		}
	}
}
