package plot

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL plot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const plotColumns = `
	id, name, crop_name, planting_date, soil_name, area_m2,
	lat, lon, location_name, created_at, updated_at`

const eventColumns = `
	id, plot_id, irrigated_at, volume_liters, liters_per_m2, note, created_at`

func scanPlot(row pgx.Row) (*Plot, error) {
	var p Plot
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CropName,
		&p.PlantingDate,
		&p.SoilName,
		&p.AreaM2,
		&p.Location.Lat,
		&p.Location.Lon,
		&p.LocationName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanEvent(row pgx.Row) (*IrrigationEvent, error) {
	var e IrrigationEvent
	err := row.Scan(
		&e.ID,
		&e.PlotID,
		&e.IrrigatedAt,
		&e.VolumeLiters,
		&e.LitersPerM2,
		&e.Note,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get retrieves a plot by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Plot, error) {
	p, err := scanPlot(r.pool.QueryRow(ctx, `SELECT`+plotColumns+` FROM plots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlotNotFound
	}
	return p, err
}

// List retrieves plots with keyset pagination on (created_at, id).
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := clampLimit(opts.Limit)

	query := `SELECT` + plotColumns + `
		FROM plots
		WHERE $1 = '' OR (created_at, id) > (SELECT created_at, id FROM plots WHERE id = $1)
		ORDER BY created_at, id
		LIMIT $2`

	// Fetch one extra to determine if there are more results
	rows, err := r.pool.Query(ctx, query, opts.Cursor, limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plots []*Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: plots}
	if len(plots) > limit {
		result.Items = plots[:limit]
		result.NextCursor = plots[limit-1].ID
	}
	return result, nil
}

// Create inserts a new plot.
func (r *PostgresRepository) Create(ctx context.Context, p *Plot) error {
	query := `
		INSERT INTO plots (` + plotColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.CropName,
		p.PlantingDate,
		p.SoilName,
		p.AreaM2,
		p.Location.Lat,
		p.Location.Lon,
		p.LocationName,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// Update updates an existing plot.
func (r *PostgresRepository) Update(ctx context.Context, p *Plot) error {
	query := `
		UPDATE plots SET
			name = $2,
			crop_name = $3,
			planting_date = $4,
			soil_name = $5,
			area_m2 = $6,
			lat = $7,
			lon = $8,
			location_name = $9,
			updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.CropName,
		p.PlantingDate,
		p.SoilName,
		p.AreaM2,
		p.Location.Lat,
		p.Location.Lon,
		p.LocationName,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPlotNotFound
	}
	return nil
}

// Delete deletes a plot. Events are removed by the foreign key cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM plots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPlotNotFound
	}
	return nil
}

// AddEvent inserts an irrigation event.
func (r *PostgresRepository) AddEvent(ctx context.Context, e *IrrigationEvent) error {
	query := `
		INSERT INTO irrigation_events (` + eventColumns + `
		)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM plots WHERE id = $2)
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.PlotID,
		e.IrrigatedAt,
		e.VolumeLiters,
		e.LitersPerM2,
		e.Note,
		e.CreatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPlotNotFound
	}
	return nil
}

// ListEvents returns the most recent events for a plot.
func (r *PostgresRepository) ListEvents(ctx context.Context, plotID string, limit int) ([]*IrrigationEvent, error) {
	query := `SELECT` + eventColumns + `
		FROM irrigation_events
		WHERE plot_id = $1
		ORDER BY irrigated_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, plotID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*IrrigationEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastEvent returns the most recent event for a plot.
func (r *PostgresRepository) LastEvent(ctx context.Context, plotID string) (*IrrigationEvent, error) {
	query := `SELECT` + eventColumns + `
		FROM irrigation_events
		WHERE plot_id = $1
		ORDER BY irrigated_at DESC
		LIMIT 1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, plotID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
