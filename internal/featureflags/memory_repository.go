package featureflags

import (
	"context"
	"maps"
	"sync"
)

// InMemoryRepository keeps overrides in process memory. It backs the
// service when no database is configured.
type InMemoryRepository struct {
	mu        sync.RWMutex
	overrides map[string]Flag
}

// NewInMemoryRepository creates a repository holding the given overrides.
func NewInMemoryRepository(overrides ...*Flag) *InMemoryRepository {
	r := &InMemoryRepository{overrides: make(map[string]Flag, len(overrides))}
	for _, f := range overrides {
		r.overrides[f.Key] = *f
	}
	return r
}

func (r *InMemoryRepository) Get(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	f, ok := r.overrides[key]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrFlagNotFound
	}
	return &f, nil
}

func (r *InMemoryRepository) All(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	snapshot := maps.Clone(r.overrides)
	r.mu.RUnlock()

	out := make(map[string]*Flag, len(snapshot))
	for key, f := range snapshot {
		out[key] = &f
	}
	return out, nil
}

func (r *InMemoryRepository) Save(_ context.Context, flags ...*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range flags {
		r.overrides[f.Key] = *f
	}
	return nil
}

func (r *InMemoryRepository) Reset(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.overrides, key)
	r.mu.Unlock()
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
