package plot

import "context"

// ListOptions contains options for listing plots.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains one page of plots.
type ListResult struct {
	Items      []*Plot
	NextCursor string
}

// Repository persists plots and their irrigation events.
type Repository interface {
	Get(ctx context.Context, id string) (*Plot, error)

	// List returns plots ordered by creation time. Cursor is the ID of the
	// last plot of the previous page.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	Create(ctx context.Context, p *Plot) error
	Update(ctx context.Context, p *Plot) error

	// Delete removes a plot and its events. Returns ErrPlotNotFound if absent.
	Delete(ctx context.Context, id string) error

	AddEvent(ctx context.Context, e *IrrigationEvent) error

	// ListEvents returns the most recent events first.
	ListEvents(ctx context.Context, plotID string, limit int) ([]*IrrigationEvent, error)

	// LastEvent returns the most recent event or ErrEventNotFound.
	LastEvent(ctx context.Context, plotID string) (*IrrigationEvent, error)
}

const defaultLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultLimit
	}
	return limit
}
