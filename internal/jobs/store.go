package jobs

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"mediasift/internal/services"
)

// Store persists job status records. Implementations must make each Put
// atomic with respect to concurrent Gets.
type Store interface {
	Put(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Close() error
}

// MemoryStore keeps jobs in process memory. Job history does not survive a
// restart; records are retained until the process exits.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Put stores a snapshot of the job.
func (s *MemoryStore) Put(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return services.Wrap(services.ErrValidation, "jobs", "put", "job id required", nil)
	}
	s.cache.Set(job.ID, job.Clone(), gocache.NoExpiration)
	return nil
}

// Get returns a snapshot of the job or services.ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	value, ok := s.cache.Get(id)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get", fmt.Sprintf("job %s not found", id), nil)
	}
	job, ok := value.(*Job)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get", fmt.Sprintf("job %s has unexpected type", id), nil)
	}
	return job.Clone(), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
