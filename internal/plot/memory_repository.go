package plot

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local runs without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	plots  map[string]*Plot
	events map[string][]*IrrigationEvent
}

// NewInMemoryRepository creates a new in-memory plot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		plots:  make(map[string]*Plot),
		events: make(map[string][]*IrrigationEvent),
	}
}

// Get retrieves a plot by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plots[id]
	if !ok {
		return nil, ErrPlotNotFound
	}
	cpy := *p
	return &cpy, nil
}

// List returns plots ordered by creation time, then ID.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Plot, 0, len(r.plots))
	for _, p := range r.plots {
		cpy := *p
		all = append(all, &cpy)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if opts.Cursor != "" {
		for i, p := range all {
			if p.ID == opts.Cursor {
				all = all[i+1:]
				break
			}
		}
	}

	limit := clampLimit(opts.Limit)
	result := &ListResult{Items: all}
	if len(all) > limit {
		result.Items = all[:limit]
		result.NextCursor = all[limit-1].ID
	}
	return result, nil
}

// Create stores a new plot.
func (r *InMemoryRepository) Create(_ context.Context, p *Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *p
	r.plots[p.ID] = &cpy
	return nil
}

// Update replaces an existing plot.
func (r *InMemoryRepository) Update(_ context.Context, p *Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plots[p.ID]; !ok {
		return ErrPlotNotFound
	}
	cpy := *p
	r.plots[p.ID] = &cpy
	return nil
}

// Delete removes a plot and its events.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plots[id]; !ok {
		return ErrPlotNotFound
	}
	delete(r.plots, id)
	delete(r.events, id)
	return nil
}

// AddEvent appends an irrigation event to its plot.
func (r *InMemoryRepository) AddEvent(_ context.Context, e *IrrigationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plots[e.PlotID]; !ok {
		return ErrPlotNotFound
	}
	cpy := *e
	r.events[e.PlotID] = append(r.events[e.PlotID], &cpy)
	return nil
}

// ListEvents returns up to limit events for a plot, most recent first.
func (r *InMemoryRepository) ListEvents(_ context.Context, plotID string, limit int) ([]*IrrigationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*IrrigationEvent, 0, len(r.events[plotID]))
	for _, e := range r.events[plotID] {
		cpy := *e
		events = append(events, &cpy)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].IrrigatedAt.After(events[j].IrrigatedAt)
	})

	if limit = clampLimit(limit); len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// LastEvent returns the most recent event for a plot.
func (r *InMemoryRepository) LastEvent(ctx context.Context, plotID string) (*IrrigationEvent, error) {
	events, err := r.ListEvents(ctx, plotID, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return events[0], nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
